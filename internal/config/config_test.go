package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, 30*time.Minute, cfg.CheckoutTTL)
	assert.Equal(t, 10*time.Minute, cfg.SlotBuffer())
	assert.Equal(t, "promptpay", cfg.OmiseSourceType)
	assert.Equal(t, "pending", cfg.CashBookingStatus)
	assert.False(t, cfg.PaymentsEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RESERVATION_TTL", "5m")
	t.Setenv("SLOT_BUFFER_MINUTES", "0")
	t.Setenv("CASH_BOOKING_STATUS", "Confirmed")
	t.Setenv("OMISE_PUBLIC_KEY", "pkey_test")
	t.Setenv("OMISE_SECRET_KEY", "skey_test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.ReservationTTL)
	assert.Zero(t, cfg.SlotBuffer())
	assert.Equal(t, "confirmed", cfg.CashBookingStatus)
	assert.True(t, cfg.PaymentsEnabled())
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AppEnv:            "dev",
			DatabaseURL:       defaultDSN,
			JWTSecret:         defaultJWTSecret,
			ReservationTTL:    time.Minute,
			CheckoutTTL:       time.Minute,
			ReaperInterval:    time.Minute,
			ReaperBatchSize:   10,
			WebhookLockTTL:    time.Minute,
			Currency:          "THB",
			CashBookingStatus: "pending",
		}
	}
	require.NoError(t, validateConfig(valid()))

	cases := map[string]func(*Config){
		"zero reservation ttl": func(c *Config) { c.ReservationTTL = 0 },
		"negative buffer":      func(c *Config) { c.SlotBufferMinutes = -1 },
		"unknown cash status":  func(c *Config) { c.CashBookingStatus = "paid" },
		"half omise keys":      func(c *Config) { c.OmisePublicKey = "pkey" },
		"prod default secret":  func(c *Config) { c.AppEnv = "prod" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
