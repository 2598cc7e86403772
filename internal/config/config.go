// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds settings shared by the api, worker and ridectl binaries
type Config struct {
	Port           string       `env:"PORT" envDefault:"8080"`
	DatabaseURL    string       `env:"DATABASE_URL"`
	BaseURL        string       `env:"BASE_URL" envDefault:"http://localhost:8080"`
	SessionSecret  string       `env:"SESSION_SECRET"`
	RedisAddr      string       `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SyncCron       string       `env:"SYNC_CRON" envDefault:"0 */6 * * *"`
	ScoringProfile string       `env:"SCORING_PROFILE"`
	LogLevel       string       `env:"LOG_LEVEL" envDefault:"info"`
	Strava         StravaConfig `envPrefix:"STRAVA_"`
}

// StravaConfig holds Strava-specific configuration
type StravaConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// HasStrava returns true if Strava configuration is complete
func (c *Config) HasStrava() bool {
	return c.Strava.ClientID != "" && c.Strava.ClientSecret != ""
}

// Validate checks what the server binaries need to start
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL is not an absolute url: %q", c.BaseURL))
	}
	return errors.Join(errs...)
}

// StravaRedirectURL is the OAuth callback registered with Strava
func (c *Config) StravaRedirectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/oauth/strava/callback"
}

// SecureCookies is true when the app is served over https
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// Level parses LogLevel, falling back to info
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
