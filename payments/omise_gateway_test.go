package payments

import (
	"testing"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/omise/omise-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charge(id, status string) *omise.Charge {
	ch := &omise.Charge{}
	ch.ID = id
	ch.Status = omise.ChargeStatus(status)
	return ch
}

func TestAuthorizationForSuccessfulCharge(t *testing.T) {
	auth, err := authorizationFor(charge("chrg_test_1", "successful"), 8000, "AUD")
	require.NoError(t, err)
	assert.Equal(t, "chrg_test_1", auth.TransactionID)
	assert.Equal(t, int64(8000), auth.Amount)
	assert.Equal(t, "AUD", auth.Currency)
}

func TestAuthorizationForPendingChargeIsDeclined(t *testing.T) {
	_, err := authorizationFor(charge("chrg_test_2", "pending"), 8000, "AUD")
	assert.ErrorIs(t, err, apperror.ErrPaymentDeclined)
}

func TestAuthorizationForFailedChargeKeepsReason(t *testing.T) {
	ch := charge("chrg_test_3", "failed")
	reason, code := "insufficient funds", "insufficient_fund"
	ch.FailureMessage = &reason
	ch.FailureCode = &code

	_, err := authorizationFor(ch, 8000, "AUD")
	require.ErrorIs(t, err, apperror.ErrPaymentDeclined)
	assert.Contains(t, err.Error(), reason)
}
