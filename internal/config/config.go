package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains client configuration parameters.
type Config struct {
	LogLevel int     `env:"LOG_LEVEL" envDefault:"0"`
	API      API     `envPrefix:"API_"`
	Auth     Auth    `envPrefix:"AUTH_"`
	Storage  Storage `envPrefix:"STORAGE_"`
	Stream   Stream  `envPrefix:"STREAM_"`
}

// API contains backend endpoint parameters.
type API struct {
	BaseURL    string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
	CACertFile string        `env:"CA_CERT_FILE"`
}

// Auth contains the credentials presented at login. Empty values mean the
// client starts with whatever session is already persisted.
type Auth struct {
	Login    string `env:"LOGIN"`
	Password string `env:"PASSWORD"`
}

// Storage contains local token storage parameters.
type Storage struct {
	Path string `env:"PATH" envDefault:"workdesk.db"`
}

// Stream contains notification stream parameters.
type Stream struct {
	Path        string        `env:"PATH" envDefault:"/api/v1/notifications/stream"`
	WindowHours int           `env:"WINDOW_HOURS" envDefault:"24"`
	MaxBackoff  time.Duration `env:"MAX_BACKOFF" envDefault:"30s"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
