// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Auth mode selects how bearer tokens are turned into user identities.
const (
	// AuthModeRemote validates tokens against the Supabase Auth API.
	AuthModeRemote = "remote"
	// AuthModeLocal decodes token claims locally. Without SUPABASE_JWT_SECRET
	// the signature is NOT re-verified; see internal/auth for the trust
	// assumption this mode relies on.
	AuthModeLocal = "local"
)

// Config holds all service configuration. It is built once at startup and
// injected; the store client and auth middleware never read the
// environment themselves.
type Config struct {
	// Supabase project settings.
	SupabaseURL string
	SupabaseKey string

	// Optional HMAC secret. When set with AuthModeLocal, token signatures
	// are verified locally instead of trusted.
	JWTSecret string

	AuthMode string

	// HTTP server settings.
	ListenAddr     string
	AllowedOrigins []string
}

// FromEnv builds a Config from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		SupabaseURL: strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey: os.Getenv("SUPABASE_KEY"),
		JWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
		AuthMode:    os.Getenv("AUTH_MODE"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
	}

	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthModeRemote
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		origins = "*"
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if u, err := url.Parse(c.SupabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SUPABASE_URL must be a valid URL")
	}
	if c.SupabaseKey == "" {
		return fmt.Errorf("SUPABASE_KEY is required")
	}
	if c.AuthMode != AuthModeRemote && c.AuthMode != AuthModeLocal {
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeRemote, AuthModeLocal, c.AuthMode)
	}
	return nil
}
