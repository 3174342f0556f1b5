package middleware

import (
	"fmt"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var errInvalidToken = apperror.New(fiber.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired JWT")

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, _ error) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "code": "MALFORMED_TOKEN", "message": "Missing or malformed JWT"})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "code": errInvalidToken.Code, "message": errInvalidToken.Message})
}

// GenerateToken signs the login token carrying user_id and role.
func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a raw token outside the fiber middleware, for the
// websocket handshake.
func ParseToken(secret, raw string) (uuid.UUID, models.Role, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", errInvalidToken
	}
	return claimsIdentity(claims)
}

func claimsIdentity(claims jwt.MapClaims) (uuid.UUID, models.Role, error) {
	rawID, _ := claims["user_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", errInvalidToken
	}
	role, _ := claims["role"].(string)
	return id, models.Role(role), nil
}

// Identity returns the caller set by Protected.
func Identity(c *fiber.Ctx) (uuid.UUID, models.Role, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, "", errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", errInvalidToken
	}
	return claimsIdentity(claims)
}

func RoleRequired(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, got, err := Identity(c)
		if err != nil {
			return err
		}
		if got != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"code":    apperror.ErrForbidden.Code,
				"message": fmt.Sprintf("Forbidden: %s access required", role),
			})
		}
		return c.Next()
	}
}

func AdminRequired() fiber.Handler      { return RoleRequired(models.RoleAdmin) }
func InstructorRequired() fiber.Handler { return RoleRequired(models.RoleInstructor) }
func StudentRequired() fiber.Handler    { return RoleRequired(models.RoleStudent) }
