// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing
	JWTSecret   string        `env:"JWT_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	TokenLeeway time.Duration `env:"TOKEN_LEEWAY" envDefault:"30s"`

	// Responder backend (Ollama)
	OllamaHost       string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel      string        `env:"OLLAMA_MODEL" envDefault:"llama3.2"`
	ResponderTimeout time.Duration `env:"RESPONDER_TIMEOUT" envDefault:"60s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts.
	// WriteTimeout must cover a full responder turn, so it exceeds
	// ResponderTimeout by a margin.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled   bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM       int  `env:"RATE_LIMIT_API_RPM" envDefault:"120"`
	RateLimitAPIBurst     int  `env:"RATE_LIMIT_API_BURST" envDefault:"20"`
	RateLimitLoginEnabled bool `env:"RATE_LIMIT_LOGIN_ENABLED" envDefault:"true"`
	RateLimitLoginRPM     int  `env:"RATE_LIMIT_LOGIN_RPM" envDefault:"10"`
	RateLimitLoginBurst   int  `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
