// Package server provides configuration helpers that define runtime defaults,
// environment overrides, and validation for the roomchat service.
package server

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/Tyrowin/roomchat/internal/joke"
	"github.com/Tyrowin/roomchat/internal/logging"
)

// EnvPrefix prefixes every environment variable read by NewConfigFromEnv.
const EnvPrefix = "ROOMCHAT"

// RateLimitConfig defines the parameters for per-connection message rate limiting.
// Burst frames are allowed at once and the allowance refills fully every
// RefillInterval.
type RateLimitConfig struct {
	Burst          int           `split_words:"true" validate:"gte=1"`
	RefillInterval time.Duration `split_words:"true" validate:"gt=0"`
}

// JokeConfig points at the external joke service. get-joke runs on the
// connection's read loop, so Timeout across MaxRetries+1 attempts must finish
// well inside the read deadline or the connection is dropped mid-request.
type JokeConfig struct {
	URL        string        `split_words:"true" validate:"required,url"`
	Timeout    time.Duration `split_words:"true" validate:"gt=0"`
	MaxRetries uint64        `split_words:"true"`
}

// LogConfig selects log level, encoding, and an optional rotated log file.
type LogConfig struct {
	Level  string `split_words:"true" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `split_words:"true" validate:"oneof=json console"`
	File   string `split_words:"true"`
}

// Config holds the server configuration settings including security controls.
// Environment keys are derived from field names split on camel case, so
// RateLimit.RefillInterval is read from ROOMCHAT_RATE_LIMIT_REFILL_INTERVAL.
type Config struct {
	Port            string          `split_words:"true" validate:"required"`
	AllowedOrigins  []string        `split_words:"true"`
	MaxMessageSize  int64           `split_words:"true" validate:"gt=0"`
	SendBufferSize  int             `split_words:"true" validate:"gt=0"`
	ShutdownTimeout time.Duration   `split_words:"true" validate:"gt=0"`
	RateLimit       RateLimitConfig `split_words:"true"`
	Joke            JokeConfig      `split_words:"true"`
	Log             LogConfig       `split_words:"true"`
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		ShutdownTimeout: 10 * time.Second,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		Joke: JokeConfig{
			URL:        joke.DefaultURL,
			Timeout:    5 * time.Second,
			MaxRetries: 2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config from ROOMCHAT_* environment variables
// layered over the defaults, e.g. ROOMCHAT_PORT, ROOMCHAT_ALLOWED_ORIGINS
// (comma separated), ROOMCHAT_RATE_LIMIT_BURST, ROOMCHAT_JOKE_TIMEOUT.
// Variables that are unset keep their default. The result is validated.
func NewConfigFromEnv() (*Config, error) {
	cfg := defaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var configValidator = validator.New()

// Validate checks every field constraint and reports all violations at once.
// It also rejects joke settings whose worst case outlasts the read deadline.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if worst := c.JokeClientConfig().MaxElapsed(); worst >= pongWait {
		return errors.Newf("invalid configuration: joke timeout %s with %d retries can block a connection for %s, past the %s read deadline",
			c.Joke.Timeout, c.Joke.MaxRetries, worst, pongWait)
	}
	return nil
}

// LoggingConfig converts the log settings for logging.New.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}

// JokeClientConfig converts the joke settings for joke.NewClient.
func (c *Config) JokeClientConfig() joke.Config {
	return joke.Config{
		URL:        c.Joke.URL,
		Timeout:    c.Joke.Timeout,
		MaxRetries: c.Joke.MaxRetries,
	}
}
