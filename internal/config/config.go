// Package config loads the server configuration from environment variables.
//
// Everything the login flow needs is in one Config value built at startup
// and passed down explicitly; no package reads the environment on its own.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Session store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all environment configuration.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// OAuth app registered at https://github.com/settings/developers.
	ClientID     string `env:"OAUTH_CLIENT_ID,required,notEmpty"`
	ClientSecret string `env:"OAUTH_CLIENT_SECRET,required,notEmpty"`
	CallbackURL  string `env:"AUTH_CALLBACK_URL,required,notEmpty"`

	// Scope is sent as one string. Collaborator checks on private
	// repositories need "repo"; "read:user" is enough for public ones.
	Scope string `env:"OAUTH_SCOPE" envDefault:"read:user"`

	// Repo is the "owner/name" repository users must collaborate on.
	Repo string `env:"GITHUB_REPO,required,notEmpty"`

	GitHubOAuthURL  string        `env:"GITHUB_OAUTH_URL" envDefault:"https://github.com"`
	GitHubAPIURL    string        `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	SessionStore string `env:"SESSION_STORE" envDefault:"sqlite"`
	DBPath       string `env:"DB_PATH" envDefault:"data/sessions.db"`
	RedisURL     string `env:"REDIS_URL"`

	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	owner, name, ok := strings.Cut(c.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("GITHUB_REPO must look like owner/name, got %q", c.Repo)
	}

	u, err := url.Parse(c.CallbackURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("AUTH_CALLBACK_URL must be an absolute URL, got %q", c.CallbackURL)
	}

	switch c.SessionStore {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite session store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis session store")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", StoreSQLite, StoreRedis, c.SessionStore)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}

	return nil
}
