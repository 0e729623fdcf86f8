package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("PG_URL", "postgres://localhost:5432/payments")

		cfg, err := New()

		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "x-callback-token", cfg.WebhookSignatureHeader)
		assert.Equal(t, int64(1<<20), cfg.WebhookMaxBodyBytes)
		assert.Equal(t, 60*time.Second, cfg.WebhookRateLimitWindow)
		assert.Equal(t, 15*time.Minute, cfg.APIRateLimitWindow)
		assert.Equal(t, NotifyModeInline, cfg.NotifyMode)
		assert.Equal(t, RateLimitStoreMemory, cfg.RateLimitStore)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("parses lists and production mode", func(t *testing.T) {
		t.Setenv("PG_URL", "postgres://localhost:5432/payments")
		t.Setenv("APP_ENV", "production")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

		cfg, err := New()

		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	})

	t.Run("fails without database url", func(t *testing.T) {
		t.Setenv("PG_URL", "")

		_, err := New()

		assert.Error(t, err)
	})
}
