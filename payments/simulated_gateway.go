package payments

import (
	"context"
	"math/rand"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/utils"
)

// declineCVV always triggers a decline on the simulated gateway.
const declineCVV = "000"

// SimulatedGateway stands in for a card processor in development and tests.
type SimulatedGateway struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	Now        func() time.Time
}

func NewSimulatedGateway(minLatency, maxLatency time.Duration) *SimulatedGateway {
	return &SimulatedGateway{MinLatency: minLatency, MaxLatency: maxLatency, Now: time.Now}
}

func (g *SimulatedGateway) Authorize(ctx context.Context, amount int64, currency string, card CardDetails) (Authorization, error) {
	if err := sleep(ctx, g.latency()); err != nil {
		return Authorization{}, apperror.ErrPaymentTimeout.Wrap(err)
	}

	if err := validateCard(card); err != nil {
		return Authorization{}, err
	}
	if card.CVV == declineCVV {
		return Authorization{}, apperror.ErrPaymentDeclined.WithMessage("insufficient funds or card restricted")
	}

	ref, err := utils.GenerateReference("TXN")
	if err != nil {
		return Authorization{}, err
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Authorization{TransactionID: ref, Amount: amount, Currency: currency, AuthorizedAt: now()}, nil
}

func (g *SimulatedGateway) latency() time.Duration {
	if g.MaxLatency <= g.MinLatency {
		return g.MinLatency
	}
	return g.MinLatency + time.Duration(rand.Int63n(int64(g.MaxLatency-g.MinLatency)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
