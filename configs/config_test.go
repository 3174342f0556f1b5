package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "AUD", c.Currency)
	assert.Equal(t, 15*time.Minute, c.PendingTTL)
	assert.Equal(t, 5*time.Second, c.PaymentTimeout)
	assert.Equal(t, "simulated", c.PaymentProvider)

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Australia/Sydney", loc.String())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "s", StoreDriver: "memory", PaymentProvider: "simulated", PendingTTL: time.Minute, PaymentTimeout: time.Second}
	require.NoError(t, base.validate())

	pg := base
	pg.StoreDriver = "postgres"
	assert.ErrorContains(t, pg.validate(), "DATABASE_URL")

	omise := base
	omise.PaymentProvider = "omise"
	assert.ErrorContains(t, omise.validate(), "OMISE")

	lat := base
	lat.PaymentMinLatency = 5 * time.Second
	lat.PaymentMaxLatency = time.Second
	assert.Error(t, lat.validate())

	short := base
	short.PendingTTL = short.PaymentTimeout
	assert.ErrorContains(t, short.validate(), "PENDING_TTL")
	short.PendingTTL = 500 * time.Millisecond
	assert.ErrorContains(t, short.validate(), "PENDING_TTL")
}

func TestLoadRejectsPendingTTLBelowPaymentTimeout(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PENDING_TTL", "3s")
	t.Setenv("PAYMENT_TIMEOUT", "5s")
	_, err := Load()
	assert.ErrorContains(t, err, "PENDING_TTL")
}
