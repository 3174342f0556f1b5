package handlers

import (
	"errors"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	Bio               *string              `json:"bio,omitempty" validate:"omitempty,max=2000"`
	PricePerHour      *int64               `json:"price_per_hour,omitempty" validate:"omitempty,gt=0"`
	Transmission      *models.Transmission `json:"transmission,omitempty"`
	ServiceAreas      []string             `json:"service_areas,omitempty" validate:"omitempty,dive,required,max=100"`
	ProfilePictureURL *string              `json:"profile_picture_url,omitempty" validate:"omitempty,url"`
}

type BlockSlotRequest struct {
	Date   string `json:"date" validate:"required"`
	Time   string `json:"time" validate:"required"`
	Reason string `json:"reason" validate:"max=255"`
}

func (h *Handler) currentInstructor(c *fiber.Ctx) (*models.Instructor, error) {
	id, _, err := caller(c)
	if err != nil {
		return nil, err
	}
	in, err := h.Store.GetInstructor(c.UserContext(), id)
	if err != nil {
		return nil, storeError(err, apperror.ErrInvalidInstructor.WithMessage("no instructor profile for this account"))
	}
	return in, nil
}

func (h *Handler) GetInstructorBookings(c *fiber.Ctx) error {
	in, err := h.currentInstructor(c)
	if err != nil {
		return err
	}
	bookings, err := h.Ledger.ListFor(c.UserContext(), in.ID, models.RoleInstructor)
	if err != nil {
		return err
	}
	return ok(c, bookings)
}

func (h *Handler) UpdateInstructorProfile(c *fiber.Ctx) error {
	in, err := h.currentInstructor(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if req.Bio != nil {
		in.Bio = req.Bio
	}
	if req.PricePerHour != nil {
		in.PricePerHour = *req.PricePerHour
	}
	if req.Transmission != nil {
		if !req.Transmission.Valid() {
			return apperror.ErrValidation.WithMessage("transmission must be Automatic, Manual or Both")
		}
		in.Transmission = *req.Transmission
	}
	if req.ServiceAreas != nil {
		in.ServiceAreas = req.ServiceAreas
	}
	if req.ProfilePictureURL != nil {
		in.ProfilePictureURL = req.ProfilePictureURL
	}

	if err := h.Store.SaveInstructor(c.UserContext(), in); err != nil {
		return storeError(err, apperror.ErrInvalidInstructor)
	}
	return ok(c, in)
}

// BlockSlot takes one of the instructor's own slots off the market. A slot
// that already holds a booking must be cancelled instead.
func (h *Handler) BlockSlot(c *fiber.Ctx) error {
	in, err := h.currentInstructor(c)
	if err != nil {
		return err
	}
	var req BlockSlotRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	slot, err := h.Slots.Resolve(req.Date, req.Time)
	if err != nil {
		return err
	}

	busy, err := h.Store.ActiveInstructorsAt(c.UserContext(), slot.At)
	if err != nil {
		return apperror.ErrStoreUnavailable.Wrap(err)
	}
	for _, id := range busy {
		if id == in.ID {
			return apperror.ErrSlotAlreadyTaken.WithMessage("slot already has a booking, cancel it instead")
		}
	}

	block := models.BlockedSlot{ID: h.IDs.NewID(), InstructorID: in.ID, StartsAt: slot.At, Reason: req.Reason}
	if err := h.Store.BlockSlot(c.UserContext(), &block); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(fiber.Map{"status": "success", "message": "slot already blocked"})
		}
		return apperror.ErrStoreUnavailable.Wrap(err)
	}
	return created(c, block)
}

func (h *Handler) UnblockSlot(c *fiber.Ctx) error {
	in, err := h.currentInstructor(c)
	if err != nil {
		return err
	}
	var req BlockSlotRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	slot, err := h.Slots.Resolve(req.Date, req.Time)
	if err != nil {
		return err
	}
	if err := h.Store.UnblockSlot(c.UserContext(), in.ID, slot.At); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrInvalidSlot.WithMessage("slot is not blocked")
		}
		return apperror.ErrStoreUnavailable.Wrap(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) UploadSignature(c *fiber.Ctx) error {
	if h.Uploads == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Uploads are not configured")
	}
	sig, err := h.Uploads.Sign()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to sign upload params")
	}
	return ok(c, sig)
}
