package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration.
type Config struct {
	Server    ServerConfig
	Reactive  ReactiveConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// ReactiveConfig holds store scheduling configuration.
type ReactiveConfig struct {
	// TickInterval is the batch scheduler delay. 16ms matches a 60Hz frame.
	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"16ms"`
	// PollInterval is the bridge memory sampling interval.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"32ms"`
}

// SandboxConfig holds execution sandbox limits.
type SandboxConfig struct {
	CallTimeout    time.Duration `envconfig:"SANDBOX_CALL_TIMEOUT" default:"10s"`
	MaxMemoryBytes uint32        `envconfig:"SANDBOX_MAX_MEMORY" default:"1048576"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "0.0.0.0",
		},
		Reactive: ReactiveConfig{
			TickInterval: 16 * time.Millisecond,
			PollInterval: 32 * time.Millisecond,
		},
		Sandbox: SandboxConfig{
			CallTimeout:    10 * time.Second,
			MaxMemoryBytes: 1 << 20,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
