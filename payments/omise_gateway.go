package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/rs/zerolog/log"
)

// OmiseGateway tokenizes the card and creates a captured charge.
type OmiseGateway struct {
	client *omise.Client
}

func NewOmiseGateway(publicKey, secretKey string) (*OmiseGateway, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	c.SetDebug(false)
	return &OmiseGateway{client: c}, nil
}

func (g *OmiseGateway) Authorize(ctx context.Context, amount int64, currency string, card CardDetails) (Authorization, error) {
	if err := validateCard(card); err != nil {
		return Authorization{}, err
	}

	token := &omise.Token{}
	err := g.do(ctx, func() error {
		return g.client.Do(token, &operations.CreateToken{
			Name:            card.HolderName,
			Number:          card.Digits(),
			ExpirationMonth: time.Month(card.ExpMonth),
			ExpirationYear:  card.ExpYear,
			SecurityCode:    card.CVV,
		})
	})
	if err != nil {
		if errors.Is(err, apperror.ErrPaymentTimeout) {
			return Authorization{}, err
		}
		return Authorization{}, apperror.ErrCardValidation.Wrap(err)
	}

	ch := &omise.Charge{}
	err = g.do(ctx, func() error {
		return g.client.Do(ch, &operations.CreateCharge{
			Amount:   amount,
			Currency: currency,
			Card:     token.ID,
		})
	})
	if err != nil {
		if errors.Is(err, apperror.ErrPaymentTimeout) {
			return Authorization{}, err
		}
		return Authorization{}, apperror.ErrPaymentDeclined.Wrap(err)
	}

	return authorizationFor(ch, amount, currency)
}

// authorizationFor accepts only captured charges. A pending charge (for
// example one waiting on 3-D Secure) is declined so the slot is released.
func authorizationFor(ch *omise.Charge, amount int64, currency string) (Authorization, error) {
	fc := ""
	if ch.FailureCode != nil {
		fc = *ch.FailureCode
	}
	switch string(ch.Status) {
	case "successful":
		log.Info().Str("charge_id", ch.ID).Msg("✅ Omise charge created")
		return Authorization{TransactionID: ch.ID, Amount: amount, Currency: currency, AuthorizedAt: time.Now()}, nil
	case "pending":
		log.Warn().Str("charge_id", ch.ID).Msg("🔥 Omise charge still pending, treating as declined")
		return Authorization{}, apperror.ErrPaymentDeclined.WithMessage("payment needs further authorization")
	default:
		msg := "payment was declined"
		if ch.FailureMessage != nil {
			msg = *ch.FailureMessage
		}
		log.Warn().Str("charge_id", ch.ID).Str("failure_code", fc).Msg("🔥 Omise charge failed")
		return Authorization{}, apperror.ErrPaymentDeclined.WithMessage("%s", msg)
	}
}

// do runs an Omise call but stops waiting once ctx is done.
func (g *OmiseGateway) do(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return apperror.ErrPaymentTimeout.Wrap(ctx.Err())
	}
}
