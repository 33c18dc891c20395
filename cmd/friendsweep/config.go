package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/wrale/friendsweep/internal/platform"
)

// Session store backends
const (
	storeMemory = "memory"
	storeRedis  = "redis"
)

// Config holds server configuration loaded from environment variables
type Config struct {
	Port              int           `envconfig:"PORT" default:"8080"`
	ClientID          string        `envconfig:"PLATFORM_CLIENT_ID" required:"true"`
	ClientSecret      string        `envconfig:"PLATFORM_CLIENT_SECRET" required:"true"`
	AccountServiceURL string        `envconfig:"ACCOUNT_SERVICE_URL" default:"https://account-public-service-prod.ol.epicgames.com"`
	FriendsServiceURL string        `envconfig:"FRIENDS_SERVICE_URL" default:"https://friends-public-service-prod.ol.epicgames.com"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	PollTimeout       time.Duration `envconfig:"POLL_TIMEOUT" default:"10m"`
	SessionStore      string        `envconfig:"SESSION_STORE" default:"memory"`
	RedisURL          string        `envconfig:"REDIS_URL"`
	SessionRetention  time.Duration `envconfig:"SESSION_RETENTION" default:"1h"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	CookieSecure      bool          `envconfig:"COOKIE_SECURE" default:"false"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RemoveConcurrency int           `envconfig:"REMOVE_CONCURRENCY" default:"0"`
}

// loadConfig reads and checks the environment
func loadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations envconfig cannot express
func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("PLATFORM_CLIENT_ID and PLATFORM_CLIENT_SECRET must not be empty")
	}

	switch c.SessionStore {
	case storeMemory:
	case storeRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.PollInterval <= 0 || c.PollTimeout <= 0 {
		return errors.New("POLL_INTERVAL and POLL_TIMEOUT must be positive")
	}
	if c.RemoveConcurrency < 0 {
		return errors.New("REMOVE_CONCURRENCY must not be negative")
	}
	return nil
}

// platformConfig builds the gateway settings
func (c Config) platformConfig() platform.Config {
	return platform.Config{
		Credential: platform.ClientCredential{
			ID:     c.ClientID,
			Secret: c.ClientSecret,
		},
		AccountServiceURL: c.AccountServiceURL,
		FriendsServiceURL: c.FriendsServiceURL,
		Timeout:           c.RequestTimeout,
	}
}
