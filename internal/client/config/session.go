package config

import (
	"time"
)

// SessionConfig представляет конфигурацию клиентской сессии.
type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout" env:"APIKIT_SESSION_IDLE_TIMEOUT" env-default:"30m"`
	CheckInterval time.Duration `yaml:"check_interval" env:"APIKIT_SESSION_CHECK_INTERVAL" env-default:"1m"`
}
