package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/middleware"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/anjiri1684/driving_school/services"
	"github.com/anjiri1684/driving_school/utils"
	"github.com/anjiri1684/driving_school/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

type Deps struct {
	Store        repository.Store
	Ledger       *services.Ledger
	Flow         *services.FlowController
	Index        *services.AvailabilityIndex
	Slots        *services.SlotResolver
	LearningPath *services.LearningPathService
	Hub          *websocket.Hub
	Uploads      *UploadSigner
	IDs          utils.IDAllocator
	JWTSecret    string
	TokenTTL     time.Duration
	Currency     string
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.IDs == nil {
		d.IDs = utils.UUIDAllocator{}
	}
	if d.TokenTTL <= 0 {
		d.TokenTTL = 72 * time.Hour
	}
	return &Handler{Deps: d}
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return apperror.ErrValidation.WithMessage("Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.ErrValidation.Wrap(err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return apperror.ErrValidation.WithMessage("%s", strings.Join(fields, "; "))
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperror.ErrValidation.WithMessage("%s must be a UUID", name)
	}
	return id, nil
}

func caller(c *fiber.Ctx) (uuid.UUID, models.Role, error) {
	return middleware.Identity(c)
}

func storeError(err error, notFound *apperror.Error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.ErrEmailAlreadyExists
	}
	return apperror.ErrStoreUnavailable.Wrap(err)
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"status": "success", "data": data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": data})
}
