package handlers

import (
	"errors"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/payments"
	"github.com/anjiri1684/driving_school/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SelectSlotRequest struct {
	Date string `json:"date" validate:"required"`
	Time string `json:"time" validate:"required"`
}

type SelectInstructorRequest struct {
	InstructorID string `json:"instructor_id" validate:"required,uuid"`
	LessonKind   string `json:"lesson_kind" validate:"required"`
	Location     string `json:"location"`
}

type CheckoutRequest struct {
	Card payments.CardDetails `json:"card"`
}

// flowIDs returns the session in the path and the calling student.
func flowIDs(c *fiber.Ctx) (sessionID, studentID uuid.UUID, err error) {
	sessionID, err = paramUUID(c, "id")
	if err != nil {
		return
	}
	studentID, _, err = caller(c)
	return
}

func (h *Handler) StartBookingFlow(c *fiber.Ctx) error {
	studentID, _, err := caller(c)
	if err != nil {
		return err
	}
	return created(c, h.Flow.Start(c.UserContext(), studentID))
}

func (h *Handler) GetBookingFlow(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	s, err := h.Flow.Get(sessionID, studentID)
	if err != nil {
		return err
	}
	return ok(c, s)
}

func (h *Handler) SelectFlowSlot(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	var req SelectSlotRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Flow.SelectSlot(c.UserContext(), sessionID, studentID, req.Date, req.Time)
	if err != nil {
		return err
	}
	return ok(c, s)
}

// SearchFlowInstructors applies the query filters and returns the session
// with fresh candidates.
func (h *Handler) SearchFlowInstructors(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	var filter services.SearchFilter
	if err := c.QueryParser(&filter); err != nil {
		return apperror.ErrValidation.WithMessage("invalid query parameters")
	}
	if filter.Transmission != "" && !filter.Transmission.Valid() {
		return apperror.ErrValidation.WithMessage("transmission must be Automatic, Manual or Both")
	}
	s, err := h.Flow.Search(c.UserContext(), sessionID, studentID, filter)
	if err != nil {
		return err
	}
	return ok(c, s)
}

func (h *Handler) FlowInstructorDetails(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	instructorID, err := paramUUID(c, "instructorId")
	if err != nil {
		return err
	}
	details, err := h.Flow.InstructorDetails(c.UserContext(), sessionID, studentID, instructorID)
	if err != nil {
		return err
	}
	return ok(c, details)
}

func (h *Handler) SelectFlowInstructor(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	var req SelectInstructorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	kind, valid := models.ParseLessonKind(req.LessonKind)
	if !valid {
		return apperror.ErrInvalidLessonKind
	}
	s, err := h.Flow.SelectInstructor(c.UserContext(), sessionID, studentID, uuid.MustParse(req.InstructorID), kind, req.Location)
	if err != nil {
		return err
	}
	return ok(c, s)
}

// CheckoutFlow answers 200 with the SUCCESS session. On failure the session,
// already moved to the step the student resumes from, rides along as data.
func (h *Handler) CheckoutFlow(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	var req CheckoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Flow.Checkout(c.UserContext(), sessionID, studentID, req.Card)
	if err != nil {
		var e *apperror.Error
		if s.ID == uuid.Nil || !errors.As(err, &e) {
			return err
		}
		return c.Status(e.Status).JSON(fiber.Map{
			"status":  "error",
			"code":    e.Code,
			"message": e.Message,
			"data":    s,
		})
	}
	return ok(c, s)
}

func (h *Handler) BackFlow(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	s, err := h.Flow.Back(c.UserContext(), sessionID, studentID)
	if err != nil {
		return err
	}
	return ok(c, s)
}

func (h *Handler) ExitFlow(c *fiber.Ctx) error {
	sessionID, studentID, err := flowIDs(c)
	if err != nil {
		return err
	}
	if err := h.Flow.Exit(sessionID, studentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
