package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// CallbackPath is where the provider sends the user back with a code
	CallbackPath = "/auth/callback"

	// LogoutPath clears the session and signs out at the provider
	LogoutPath = "/logout"

	// Scopes requested from the provider, both on authorize and on token exchange
	Scopes = "openid profile email"

	envProduction = "production"
)

// Config holds the process-wide configuration. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	Provider ProviderConfig
	Session  SessionConfig
	Server   ServerConfig
}

// ProviderConfig describes the identity provider application
type ProviderConfig struct {
	TenantID        string        `env:"AZURE_TENANT_ID,required,notEmpty"`
	ClientID        string        `env:"AZURE_CLIENT_ID,required,notEmpty"`
	ClientSecret    string        `env:"AZURE_CLIENT_SECRET,required,notEmpty"`
	RedirectURI     string        `env:"REDIRECT_URI,required,notEmpty"`
	Authority       string        `env:"AUTHORITY_URL" envDefault:"https://login.microsoftonline.com"`
	ExchangeTimeout time.Duration `env:"TOKEN_EXCHANGE_TIMEOUT" envDefault:"10s"`
}

// SessionConfig holds the session cookie settings
type SessionConfig struct {
	Secret     string `env:"COOKIE_SECRET,required,notEmpty"`
	CookieName string `env:"COOKIE_NAME" envDefault:"lean_auth"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port              string  `env:"PORT,required,notEmpty"`
	Environment       string  `env:"APP_ENV" envDefault:"development"`
	StaticDir         string  `env:"STATIC_DIR" envDefault:"./public"`
	RedisURL          string  `env:"REDIS_URL"`
	CallbackRateLimit float64 `env:"CALLBACK_RATE_LIMIT" envDefault:"5"`
	CallbackRateBurst int     `env:"CALLBACK_RATE_BURST" envDefault:"10"`
	LogLevel          string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string  `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file, parses the environment and validates the result.
// Any error means the process must not start serving.
func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadSession parses only the session settings; used by the offline CLI tools.
func LoadSession() (*SessionConfig, error) {
	loadDotEnv()

	var cfg SessionConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDotEnv() {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

// Validate checks the provider settings
func (c *ProviderConfig) Validate() error {
	switch {
	case c.TenantID == "":
		return errors.New("AZURE_TENANT_ID is required")
	case c.ClientID == "":
		return errors.New("AZURE_CLIENT_ID is required")
	case c.ClientSecret == "":
		return errors.New("AZURE_CLIENT_SECRET is required")
	case c.ExchangeTimeout <= 0:
		return errors.New("TOKEN_EXCHANGE_TIMEOUT must be positive")
	}
	if err := validateAbsoluteURL("REDIRECT_URI", c.RedirectURI); err != nil {
		return err
	}
	return validateAbsoluteURL("AUTHORITY_URL", c.Authority)
}

// Validate checks the session settings
func (c *SessionConfig) Validate() error {
	switch {
	case c.Secret == "":
		return errors.New("COOKIE_SECRET is required")
	case c.CookieName == "":
		return errors.New("COOKIE_NAME cannot be empty")
	}
	return nil
}

// Validate checks the server settings
func (c *ServerConfig) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("PORT is required")
	case c.CallbackRateLimit <= 0:
		return errors.New("CALLBACK_RATE_LIMIT must be positive")
	case c.CallbackRateBurst <= 0:
		return errors.New("CALLBACK_RATE_BURST must be positive")
	}
	return nil
}

// Production reports whether the process runs in production, which turns on
// the Secure cookie attribute
func (c ServerConfig) Production() bool {
	return strings.EqualFold(c.Environment, envProduction)
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

// baseURL is the v2.0 endpoint root for the configured tenant
func (c ProviderConfig) baseURL() string {
	return strings.TrimRight(c.Authority, "/") + "/" + url.PathEscape(c.TenantID) + "/oauth2/v2.0"
}

// AuthorizeURL returns the provider's authorization endpoint
func (c ProviderConfig) AuthorizeURL() string {
	return c.baseURL() + "/authorize"
}

// TokenURL returns the provider's token endpoint
func (c ProviderConfig) TokenURL() string {
	return c.baseURL() + "/token"
}

// LogoutURL returns the provider's logout URL with the post-logout redirect target
func (c ProviderConfig) LogoutURL() string {
	params := url.Values{"post_logout_redirect_uri": {c.PostLogoutRedirectURI()}}
	return c.baseURL() + "/logout?" + params.Encode()
}

// PostLogoutRedirectURI strips the callback path from the redirect URI, so
// https://app.example/auth/callback becomes https://app.example/
func (c ProviderConfig) PostLogoutRedirectURI() string {
	if trimmed, ok := strings.CutSuffix(c.RedirectURI, CallbackPath); ok {
		return trimmed + "/"
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return c.RedirectURI
	}
	u.Path = "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func validateAbsoluteURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", name)
	}
	return nil
}
