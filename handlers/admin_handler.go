package handlers

import (
	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type CreateInstructorRequest struct {
	FullName     string              `json:"full_name" validate:"required,min=3"`
	Email        string              `json:"email" validate:"required,email"`
	Password     string              `json:"password" validate:"required,min=6"`
	Bio          *string             `json:"bio,omitempty"`
	PricePerHour int64               `json:"price_per_hour" validate:"required,gt=0"`
	Currency     string              `json:"currency" validate:"omitempty,iso4217"`
	Transmission models.Transmission `json:"transmission" validate:"required,oneof=Automatic Manual Both"`
	ServiceAreas []string            `json:"service_areas" validate:"required,min=1,dive,required"`
	Verified     bool                `json:"verified"`
}

type VerifyRequest struct {
	Verified bool `json:"verified"`
}

type AvailabilityRequest struct {
	Available bool `json:"available"`
}

// CreateInstructor onboards an instructor: a login plus a profile sharing
// its ID.
func (h *Handler) CreateInstructor(c *fiber.Ctx) error {
	var req CreateInstructorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	currency := req.Currency
	if currency == "" {
		currency = h.Currency
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to hash password")
	}

	id := h.IDs.NewID()
	user := models.User{
		ID:       id,
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     models.RoleInstructor,
		IsActive: true,
	}
	if err := h.Store.CreateUser(c.UserContext(), &user); err != nil {
		return storeError(err, apperror.ErrUserNotFound)
	}

	in := models.Instructor{
		ID:           id,
		FullName:     req.FullName,
		Email:        user.Email,
		Bio:          req.Bio,
		PricePerHour: req.PricePerHour,
		Currency:     currency,
		Transmission: req.Transmission,
		ServiceAreas: req.ServiceAreas,
		Verified:     req.Verified,
		Available:    true,
	}
	if err := h.Store.CreateInstructor(c.UserContext(), &in); err != nil {
		log.Error().Err(err).Str("user_id", id.String()).Msg("🔥 Instructor login created but profile failed")
		return storeError(err, apperror.ErrInvalidInstructor)
	}

	log.Info().Str("instructor_id", id.String()).Msg("✅ Instructor onboarded")
	return created(c, in)
}

func (h *Handler) VerifyInstructor(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.updateInstructor(c, func(in *models.Instructor) { in.Verified = req.Verified })
}

// SetInstructorAvailability activates or deactivates an instructor. Existing
// bookings are kept; a deactivated instructor only stops appearing in search.
func (h *Handler) SetInstructorAvailability(c *fiber.Ctx) error {
	var req AvailabilityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.updateInstructor(c, func(in *models.Instructor) { in.Available = req.Available })
}

func (h *Handler) updateInstructor(c *fiber.Ctx, apply func(*models.Instructor)) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	in, err := h.Store.GetInstructor(c.UserContext(), id)
	if err != nil {
		return storeError(err, apperror.ErrInvalidInstructor)
	}
	apply(in)
	if err := h.Store.SaveInstructor(c.UserContext(), in); err != nil {
		return storeError(err, apperror.ErrInvalidInstructor)
	}
	return ok(c, in)
}

func (h *Handler) CompleteBooking(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Ledger.Complete(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, b)
}
