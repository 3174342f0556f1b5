package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestWrappedErrorsStillMatchSentinel(t *testing.T) {
	err := fmt.Errorf("reserve: %w", ErrSlotAlreadyTaken.Wrap(errors.New("duplicate key")))

	assert.ErrorIs(t, err, ErrSlotAlreadyTaken)
	assert.NotErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, fiber.StatusConflict, Status(err))
}

func TestWithMessageKeepsCode(t *testing.T) {
	err := ErrInvalidSlot.WithMessage("time %q is not an offered slot", "10:30")

	assert.ErrorIs(t, err, ErrInvalidSlot)
	assert.Equal(t, `time "10:30" is not an offered slot`, err.Error())
	assert.Equal(t, "requested slot is not bookable", ErrInvalidSlot.Message)
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(ErrPaymentDeclined))
	assert.True(t, Recoverable(ErrPaymentTimeout.Wrap(errors.New("deadline"))))
	assert.True(t, Recoverable(ErrSlotAlreadyTaken))
	assert.False(t, Recoverable(ErrStoreUnavailable))
	assert.False(t, Recoverable(errors.New("boom")))
}

func TestStatusDefaults(t *testing.T) {
	assert.Equal(t, fiber.StatusInternalServerError, Status(errors.New("boom")))
	assert.Equal(t, fiber.StatusNotFound, Status(fiber.ErrNotFound))
}

func TestHandlerRendersTypedErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler})
	app.Get("/taken", func(c *fiber.Ctx) error {
		return ErrSlotAlreadyTaken.WithMessage("Bondi 10:00 AM is gone")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("database exploded")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/taken", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var body map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "SLOT_ALREADY_TAKEN", body["code"])
	assert.Equal(t, "Bondi 10:00 AM is gone", body["message"])
	assert.Equal(t, "error", body["status"])

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandlerUsesStatusForWrappedAndFiberErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler})
	app.Get("/wrapped", func(c *fiber.Ctx) error {
		return fmt.Errorf("checkout: %w", ErrPaymentDeclined)
	})
	app.Get("/gone", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusUnauthorized, "token expired")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/wrapped", nil))
	assert.NoError(t, err)
	assert.Equal(t, Status(ErrPaymentDeclined), resp.StatusCode)
	var body map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "PAYMENT_DECLINED", body["code"])

	resp, err = app.Test(httptest.NewRequest("GET", "/gone", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body = nil
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "UNAUTHORIZED", body["code"])
	assert.Equal(t, "token expired", body["message"])
}
