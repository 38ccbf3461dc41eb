// Package config provides application configuration management.
// Configuration is loaded from environment variables once at startup and
// passed to constructors as an immutable value.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Configuration errors.
var (
	ErrMissingDatabaseURL = errors.New("CONNECTION_STRING or DATABASE_URL environment variable is required")
	ErrMissingSecret      = errors.New("SECRET_KEY or JWT_SECRET environment variable is required")
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"4000"`

	// Persistence (PostgreSQL). CONNECTION_STRING wins over DATABASE_URL.
	ConnectionString string `env:"CONNECTION_STRING"`
	DatabaseURLAlias string `env:"DATABASE_URL"`
	AutoMigrate      bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Token verification. SECRET_KEY wins over JWT_SECRET.
	SecretKey      string `env:"SECRET_KEY"`
	JWTSecretAlias string `env:"JWT_SECRET"`

	// Media host (S3 compatible)
	MediaEndpoint  string `env:"MEDIA_ENDPOINT"`
	MediaAccessKey string `env:"MEDIA_ACCESS_KEY"`
	MediaSecretKey string `env:"MEDIA_SECRET_KEY"`
	MediaBucket    string `env:"MEDIA_BUCKET" envDefault:"recipes"`
	MediaPublicURL string `env:"MEDIA_PUBLIC_URL"`
	MediaFolder    string `env:"MEDIA_FOLDER" envDefault:"food-recipes"`

	// Rate limiting (Redis). Disabled when REDIS_URL is empty.
	RedisURL                string `env:"REDIS_URL"`
	RateLimitEnabled        bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitWritePerMinute int    `env:"RATE_LIMIT_WRITE_PER_MINUTE" envDefault:"60"`
	RateLimitWriteBurst     int    `env:"RATE_LIMIT_WRITE_BURST" envDefault:"10"`
	RateLimitReadRPS        int    `env:"RATE_LIMIT_READ_RPS" envDefault:"20"`
	RateLimitReadBurst      int    `env:"RATE_LIMIT_READ_BURST" envDefault:"40"`

	// Comma-separated list of allowed origins, "*" allows any origin.
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Maximum request body in bytes, image included (default 10MB)
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DatabaseURL returns the persistence connection string, honouring aliases.
func (c *Config) DatabaseURL() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return c.DatabaseURLAlias
}

// JWTSecret returns the token verification secret, honouring aliases.
func (c *Config) JWTSecret() string {
	if c.SecretKey != "" {
		return c.SecretKey
	}
	return c.JWTSecretAlias
}

// MediaEnabled reports whether media host credentials are configured.
func (c *Config) MediaEnabled() bool {
	return c.MediaEndpoint != "" && c.MediaAccessKey != "" && c.MediaSecretKey != ""
}

// RateLimitActive reports whether rate limiting should be wired.
func (c *Config) RateLimitActive() bool {
	return c.RateLimitEnabled && c.RedisURL != ""
}

// GetAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.AllowedOrigin == "" {
		return nil
	}

	origins := strings.Split(c.AllowedOrigin, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	if c.DatabaseURL() == "" {
		return ErrMissingDatabaseURL
	}
	if c.JWTSecret() == "" {
		return ErrMissingSecret
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize)
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if the connection string or the secret is missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
