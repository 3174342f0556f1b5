package payments

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/anjiri1684/driving_school/apperror"
)

// CardDetails is what the checkout form collects. Number may contain spaces.
type CardDetails struct {
	Number     string `json:"number" validate:"required"`
	HolderName string `json:"holder_name"`
	ExpMonth   int    `json:"exp_month" validate:"omitempty,min=1,max=12"`
	ExpYear    int    `json:"exp_year"`
	CVV        string `json:"cvv" validate:"required"`
}

// Digits returns the card number with whitespace removed.
func (c CardDetails) Digits() string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, c.Number)
}

type Authorization struct {
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	AuthorizedAt  time.Time `json:"authorized_at"`
}

// Gateway authorizes a charge. Failures are apperror.ErrPaymentDeclined,
// ErrCardValidation or ErrPaymentTimeout.
type Gateway interface {
	Authorize(ctx context.Context, amount int64, currency string, card CardDetails) (Authorization, error)
}

const minCardDigits = 16

func validateCard(card CardDetails) error {
	if len(card.Digits()) < minCardDigits {
		return apperror.ErrCardValidation.WithMessage("card number must have at least %d digits", minCardDigits)
	}
	return nil
}

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout bounds every Authorize call. A provider that has not answered
// when the timeout fires is treated as a decline.
func WithTimeout(next Gateway, timeout time.Duration) Gateway {
	if timeout <= 0 {
		return next
	}
	return &timeoutGateway{next: next, timeout: timeout}
}

type authResult struct {
	auth Authorization
	err  error
}

func (g *timeoutGateway) Authorize(ctx context.Context, amount int64, currency string, card CardDetails) (Authorization, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan authResult, 1)
	go func() {
		auth, err := g.next.Authorize(ctx, amount, currency, card)
		done <- authResult{auth, err}
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, context.DeadlineExceeded) {
			return Authorization{}, apperror.ErrPaymentTimeout.Wrap(res.err)
		}
		return res.auth, res.err
	case <-ctx.Done():
		return Authorization{}, apperror.ErrPaymentTimeout.Wrap(ctx.Err())
	}
}
