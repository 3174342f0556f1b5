package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error is a typed failure carrying the HTTP status it should be rendered
// with and a stable machine-readable code.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so a copy produced by Wrap or WithMessage still
// satisfies errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e that carries cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

var (
	ErrInvalidSlot        = New(fiber.StatusBadRequest, "INVALID_SLOT", "requested slot is not bookable")
	ErrSlotAlreadyTaken   = New(fiber.StatusConflict, "SLOT_ALREADY_TAKEN", "instructor is already booked for this slot")
	ErrInvalidTransition  = New(fiber.StatusConflict, "INVALID_TRANSITION", "booking cannot move to the requested status")
	ErrPaymentDeclined    = New(fiber.StatusPaymentRequired, "PAYMENT_DECLINED", "payment was declined")
	ErrPaymentTimeout     = New(fiber.StatusGatewayTimeout, "PAYMENT_TIMEOUT", "payment provider did not respond in time")
	ErrCardValidation     = New(fiber.StatusUnprocessableEntity, "CARD_VALIDATION", "card details are invalid")
	ErrInvalidInstructor  = New(fiber.StatusNotFound, "INVALID_INSTRUCTOR", "instructor not found or not bookable")
	ErrInvalidStudent     = New(fiber.StatusNotFound, "INVALID_STUDENT", "student not found")
	ErrInvalidLessonKind  = New(fiber.StatusBadRequest, "INVALID_LESSON_KIND", "lesson kind must be TRIAL or STANDARD")
	ErrBookingNotFound    = New(fiber.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrSessionNotFound    = New(fiber.StatusNotFound, "SESSION_NOT_FOUND", "booking session not found")
	ErrInvalidStage       = New(fiber.StatusConflict, "INVALID_STAGE", "action not allowed at this step of the booking")
	ErrForbidden          = New(fiber.StatusForbidden, "FORBIDDEN", "you do not have access to this resource")
	ErrStoreUnavailable   = New(fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "booking store is unavailable, new reservations are paused")
	ErrUserNotFound       = New(fiber.StatusNotFound, "USER_NOT_FOUND", "user not found")
	ErrEmailAlreadyExists = New(fiber.StatusConflict, "EMAIL_ALREADY_EXISTS", "email already exists")
	ErrValidation         = New(fiber.StatusBadRequest, "VALIDATION_FAILED", "request is invalid")
	ErrUnauthorized       = New(fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password")
)

// Recoverable reports whether err is an expected, user-facing condition the
// booking flow can retry from.
func Recoverable(err error) bool {
	return errors.Is(err, ErrSlotAlreadyTaken) ||
		errors.Is(err, ErrPaymentDeclined) ||
		errors.Is(err, ErrPaymentTimeout) ||
		errors.Is(err, ErrCardValidation)
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
