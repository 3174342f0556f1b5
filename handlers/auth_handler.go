package handlers

import (
	"errors"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/middleware"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	FullName string  `json:"full_name" validate:"required,min=3"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// Register signs up a student. Instructors are onboarded by an admin.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to hash password")
	}

	user := models.User{
		ID:       h.IDs.NewID(),
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     models.RoleStudent,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := h.Store.CreateUser(c.UserContext(), &user); err != nil {
		return storeError(err, apperror.ErrUserNotFound)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("✅ Student registered")
	return created(c, userResponse(&user))
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.Store.GetUserByEmail(c.UserContext(), req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrUnauthorized
	}
	if err != nil {
		return apperror.ErrStoreUnavailable.Wrap(err)
	}
	if !user.IsActive {
		return apperror.ErrUnauthorized.WithMessage("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return apperror.ErrUnauthorized
	}

	t, err := middleware.GenerateToken(h.JWTSecret, user, h.TokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create token")
	}
	return ok(c, fiber.Map{"token": t, "user": userResponse(user)})
}
