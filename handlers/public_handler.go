package handlers

import (
	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.Store.Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "store": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// ListSlots returns the bookable start times.
func (h *Handler) ListSlots(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"times":    models.OfferedSlots,
		"timezone": h.Slots.Location().String(),
		"duration": fiber.Map{"trial": models.LessonTrial.DurationMinutes(), "standard": models.LessonStandard.DurationMinutes()},
	})
}

type availableQuery struct {
	Date string `query:"date" validate:"required"`
	Time string `query:"time" validate:"required"`
	services.SearchFilter
}

func (h *Handler) AvailableInstructors(c *fiber.Ctx) error {
	var q availableQuery
	if err := c.QueryParser(&q); err != nil {
		return apperror.ErrValidation.WithMessage("invalid query parameters")
	}
	if err := validate.Struct(q); err != nil {
		return validationError(err)
	}
	if q.Transmission != "" && !q.Transmission.Valid() {
		return apperror.ErrValidation.WithMessage("transmission must be Automatic, Manual or Both")
	}

	instructors, err := h.Index.FindAvailable(c.UserContext(), q.Date, q.Time, q.SearchFilter)
	if err != nil {
		return err
	}
	return ok(c, instructors)
}

func (h *Handler) GetInstructor(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	in, err := h.Index.Instructor(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, in)
}

func (h *Handler) QuoteLesson(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	kind, valid := models.ParseLessonKind(c.Query("kind", string(models.LessonStandard)))
	if !valid {
		return apperror.ErrInvalidLessonKind
	}
	in, err := h.Index.Instructor(c.UserContext(), id)
	if err != nil {
		return err
	}
	quote, err := services.QuoteLesson(in, kind)
	if err != nil {
		return err
	}
	return ok(c, quote)
}
