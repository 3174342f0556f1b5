package payments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goodCard = CardDetails{Number: "4242 4242 4242 4242", HolderName: "Sam Student", ExpMonth: 12, ExpYear: 2030, CVV: "123"}

func TestSimulatedGatewayApproves(t *testing.T) {
	g := NewSimulatedGateway(0, 0)
	auth, err := g.Authorize(context.Background(), 80, "AUD", goodCard)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(auth.TransactionID, "TXN-"))
	assert.Equal(t, int64(80), auth.Amount)
	assert.Equal(t, "AUD", auth.Currency)
}

func TestSimulatedGatewayDeclinesCVV000(t *testing.T) {
	card := goodCard
	card.CVV = "000"
	_, err := NewSimulatedGateway(0, 0).Authorize(context.Background(), 80, "AUD", card)
	assert.ErrorIs(t, err, apperror.ErrPaymentDeclined)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestSimulatedGatewayRejectsShortNumbers(t *testing.T) {
	card := goodCard
	card.Number = "4242 4242 4242 424"
	_, err := NewSimulatedGateway(0, 0).Authorize(context.Background(), 80, "AUD", card)
	assert.ErrorIs(t, err, apperror.ErrCardValidation)
}

func TestCardDigitsStripsWhitespace(t *testing.T) {
	assert.Equal(t, "4242424242424242", CardDetails{Number: " 4242\t4242 4242\n4242 "}.Digits())
}

func TestWithTimeoutTurnsSlowProviderIntoTimeout(t *testing.T) {
	slow := NewSimulatedGateway(time.Second, time.Second)
	g := WithTimeout(slow, 20*time.Millisecond)

	start := time.Now()
	_, err := g.Authorize(context.Background(), 80, "AUD", goodCard)
	assert.ErrorIs(t, err, apperror.ErrPaymentTimeout)
	assert.True(t, apperror.Recoverable(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWithTimeoutPassesResultsThrough(t *testing.T) {
	g := WithTimeout(NewSimulatedGateway(0, 0), time.Second)
	card := goodCard
	card.CVV = "000"
	_, err := g.Authorize(context.Background(), 80, "AUD", card)
	assert.ErrorIs(t, err, apperror.ErrPaymentDeclined)

	_, err = g.Authorize(context.Background(), 80, "AUD", goodCard)
	assert.NoError(t, err)
}

func TestSimulatedLatencyWithinBounds(t *testing.T) {
	g := NewSimulatedGateway(2*time.Second, 4*time.Second)
	for i := 0; i < 50; i++ {
		d := g.latency()
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 4*time.Second)
	}
}
