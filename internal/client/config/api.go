package config

import (
	"strconv"
	"time"
)

// APIConfig представляет конфигурацию HTTP клиента.
type APIConfig struct {
	BaseURL          string        `yaml:"base_url" env:"APIKIT_API_BASE_URL" env-default:"http://localhost:8080"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"APIKIT_API_REQUEST_TIMEOUT" env-default:"30s"`
	RetryMaxAttempts int           `yaml:"retry_max_attempts" env:"APIKIT_API_RETRY_MAX_ATTEMPTS" env-default:"3"`
	RetryBackoff     time.Duration `yaml:"retry_backoff" env:"APIKIT_API_RETRY_BACKOFF" env-default:"100ms"`
	RetryMaxBackoff  time.Duration `yaml:"retry_max_backoff" env:"APIKIT_API_RETRY_MAX_BACKOFF" env-default:"1s"`
	DedupWindow      time.Duration `yaml:"dedup_window" env:"APIKIT_API_DEDUP_WINDOW" env-default:"5s"`
}

// MockConfig представляет конфигурацию mock-режима.
type MockConfig struct {
	Enabled bool          `yaml:"enabled" env:"APIKIT_MOCK_ENABLED" env-default:"false"`
	Host    string        `yaml:"host" env:"APIKIT_MOCK_HOST" env-default:"0.0.0.0"`
	Port    int           `yaml:"port" env:"APIKIT_MOCK_PORT" env-default:"8080"`
	Delay   time.Duration `yaml:"delay" env:"APIKIT_MOCK_DELAY" env-default:"150ms"`

	JWTSecret       string        `yaml:"jwt_secret" env:"APIKIT_MOCK_JWT_SECRET" env-default:"mock-api-secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"APIKIT_MOCK_ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"APIKIT_MOCK_REFRESH_TOKEN_TTL" env-default:"168h"`
}

// GetAddress возвращает адрес mock сервера.
func (c *MockConfig) GetAddress() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
