package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apikit/internal/client/config"
	"apikit/pkg/logger"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := config.Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
		assert.Equal(t, 3, cfg.API.RetryMaxAttempts)
		assert.Equal(t, 100*time.Millisecond, cfg.API.RetryBackoff)
		assert.Equal(t, 5*time.Second, cfg.API.DedupWindow)
		assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
		assert.Equal(t, 8080, cfg.Mock.Port)
		assert.False(t, cfg.Mock.Enabled)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("loads values from environment", func(t *testing.T) {
		t.Setenv("APIKIT_API_BASE_URL", "https://api.example.com")
		t.Setenv("APIKIT_API_RETRY_MAX_ATTEMPTS", "5")
		t.Setenv("APIKIT_API_DEDUP_WINDOW", "2s")
		t.Setenv("APIKIT_SESSION_IDLE_TIMEOUT", "10m")
		t.Setenv("APIKIT_MOCK_ENABLED", "true")
		t.Setenv("APIKIT_MOCK_PORT", "9090")
		t.Setenv("APIKIT_LOGGER_LEVEL", "debug")
		t.Setenv("APIKIT_LOGGER_MODE", "development")

		cfg, err := config.Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
		assert.Equal(t, 5, cfg.API.RetryMaxAttempts)
		assert.Equal(t, 2*time.Second, cfg.API.DedupWindow)
		assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout)
		assert.True(t, cfg.Mock.Enabled)
		assert.Equal(t, "0.0.0.0:9090", cfg.Mock.GetAddress())
		assert.Equal(t, logger.Development, cfg.Logging.GetEnvironment())
	})
}
