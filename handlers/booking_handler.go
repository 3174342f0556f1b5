package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// GetMyBookings lists the caller's bookings as student or instructor.
func (h *Handler) GetMyBookings(c *fiber.Ctx) error {
	userID, role, err := caller(c)
	if err != nil {
		return err
	}
	bookings, err := h.Ledger.ListFor(c.UserContext(), userID, role)
	if err != nil {
		return err
	}
	return ok(c, bookings)
}

// CancelBooking is shared by the student and instructor routes; the ledger
// checks the caller takes part in the booking.
func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	userID, role, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req CancelBookingRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	reason := req.Reason
	if reason == "" {
		reason = "cancelled_by_" + string(role)
	}

	b, err := h.Ledger.CancelFor(c.UserContext(), id, userID, role, reason)
	if err != nil {
		return err
	}
	return ok(c, b)
}
