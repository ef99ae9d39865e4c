package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes configuration to the rest of the application.
type Provider interface {
	GetAddr() string
	GetAppBaseURL() string
	GetSessionSecret() string
	GetIdentityURL() string
	GetIdentityTimeout() time.Duration
	GetPhonePollInterval() time.Duration
	GetViewTTL() time.Duration
	GetDevFixture() string
	GetDevSnapshot() string
	GetIdentityTokenKey() []byte
}

// Config holds all configuration for the application.
type Config struct {
	Addr              string
	AppBaseURL        string
	SessionSecret     string
	IdentityURL       string
	IdentityTimeout   time.Duration
	PhonePollInterval time.Duration
	ViewTTL           time.Duration
	// DevFixture, when set, serves the in-process development identity API
	// seeded from this file instead of calling IdentityURL.
	DevFixture string
	// DevSnapshot is where the development identity API writes its state on
	// shutdown. Empty disables snapshots.
	DevSnapshot string
	// IdentityTokenKey is the HS256 key access tokens are signed with. When
	// set, the auth middleware verifies signatures itself.
	IdentityTokenKey string
}

var _ Provider = (*Config)(nil)

// New loads configuration from a .env file, if present, and the environment.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() *Config {
	cfg := &Config{
		Addr:              envOr("USERHOME_ADDR", ":8080"),
		AppBaseURL:        envOr("APP_BASE_URL", "http://localhost:8080"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		IdentityURL:       envOr("IDENTITY_URL", "http://localhost:8443"),
		IdentityTimeout:   durationOr("IDENTITY_TIMEOUT", 10*time.Second),
		PhonePollInterval: durationOr("PHONE_POLL_INTERVAL", time.Second),
		ViewTTL:           durationOr("VIEW_TTL", 30*time.Minute),
		DevFixture:        os.Getenv("IDENTITY_DEV_FIXTURE"),
		DevSnapshot:       os.Getenv("IDENTITY_DEV_SNAPSHOT"),
		IdentityTokenKey:  os.Getenv("IDENTITY_TOKEN_KEY"),
	}

	if cfg.SessionSecret == "" {
		log.Println("SESSION_SECRET is not set; using an insecure development secret")
		cfg.SessionSecret = "insecure-development-session-secret"
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationOr accepts Go durations ("1500ms") or a bare number of seconds.
func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Invalid duration %q for %s, using %s", raw, key, fallback)
	return fallback
}

func (c *Config) GetAddr() string                     { return c.Addr }
func (c *Config) GetAppBaseURL() string               { return c.AppBaseURL }
func (c *Config) GetSessionSecret() string            { return c.SessionSecret }
func (c *Config) GetIdentityURL() string              { return c.IdentityURL }
func (c *Config) GetIdentityTimeout() time.Duration   { return c.IdentityTimeout }
func (c *Config) GetPhonePollInterval() time.Duration { return c.PhonePollInterval }
func (c *Config) GetViewTTL() time.Duration           { return c.ViewTTL }
func (c *Config) GetDevFixture() string               { return c.DevFixture }
func (c *Config) GetDevSnapshot() string              { return c.DevSnapshot }
func (c *Config) GetIdentityTokenKey() []byte         { return []byte(c.IdentityTokenKey) }
