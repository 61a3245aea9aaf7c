package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	RequestTTLSeconds   int    `env:"QUICK_CONNECT_REQUEST_TTL_SECONDS" envDefault:"300"`
	ActiveWindowSeconds int    `env:"QUICK_CONNECT_ACTIVE_WINDOW_SECONDS" envDefault:"300"`
	SessionTTLHours     int    `env:"SESSION_TTL_HOURS" envDefault:"720"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) RequestTTL() time.Duration {
	return time.Duration(c.RequestTTLSeconds) * time.Second
}

func (c *Config) ActiveWindow() time.Duration {
	return time.Duration(c.ActiveWindowSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.RequestTTLSeconds <= 0 || c.RequestTTLSeconds > MaxRequestTTLSeconds {
		return fmt.Errorf("QUICK_CONNECT_REQUEST_TTL_SECONDS must be between 1 and %d", MaxRequestTTLSeconds)
	}
	if c.ActiveWindowSeconds <= 0 || c.ActiveWindowSeconds > MaxActiveWindowSeconds {
		return fmt.Errorf("QUICK_CONNECT_ACTIVE_WINDOW_SECONDS must be between 1 and %d", MaxActiveWindowSeconds)
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
