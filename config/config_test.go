package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_TENANT_ID", "tenant-1")
	t.Setenv("AZURE_CLIENT_ID", "client-1")
	t.Setenv("AZURE_CLIENT_SECRET", "s3cret")
	t.Setenv("REDIRECT_URI", "https://app.example/auth/callback")
	t.Setenv("COOKIE_SECRET", "cookie-secret")
	t.Setenv("PORT", "3000")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", cfg.Provider.TenantID)
	assert.Equal(t, "https://login.microsoftonline.com", cfg.Provider.Authority)
	assert.Equal(t, 10*time.Second, cfg.Provider.ExchangeTimeout)
	assert.Equal(t, "lean_auth", cfg.Session.CookieName)
	assert.Equal(t, "./public", cfg.Server.StaticDir)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.False(t, cfg.Server.Production())
}

func TestLoadMissingRequired(t *testing.T) {
	for _, name := range []string{
		"AZURE_TENANT_ID",
		"AZURE_CLIENT_ID",
		"AZURE_CLIENT_SECRET",
		"REDIRECT_URI",
		"COOKIE_SECRET",
		"PORT",
	} {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(name, "")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsRelativeRedirectURI(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIRECT_URI", "/auth/callback")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIRECT_URI")
}

func TestLoadSessionOnly(t *testing.T) {
	t.Setenv("COOKIE_SECRET", "cookie-secret")
	t.Setenv("COOKIE_NAME", "custom")

	cfg, err := LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "cookie-secret", cfg.Secret)
	assert.Equal(t, "custom", cfg.CookieName)
}

func TestProviderURLs(t *testing.T) {
	p := ProviderConfig{
		TenantID:    "tenant-1",
		RedirectURI: "https://app.example/auth/callback",
		Authority:   "https://login.microsoftonline.com/",
	}

	assert.Equal(t, "https://login.microsoftonline.com/tenant-1/oauth2/v2.0/authorize", p.AuthorizeURL())
	assert.Equal(t, "https://login.microsoftonline.com/tenant-1/oauth2/v2.0/token", p.TokenURL())
	assert.Equal(t, "https://app.example/", p.PostLogoutRedirectURI())
	assert.Equal(t,
		"https://login.microsoftonline.com/tenant-1/oauth2/v2.0/logout?post_logout_redirect_uri=https%3A%2F%2Fapp.example%2F",
		p.LogoutURL(),
	)
}

func TestPostLogoutRedirectURIWithoutCallbackSuffix(t *testing.T) {
	p := ProviderConfig{RedirectURI: "https://app.example/sso/return?x=1"}
	assert.Equal(t, "https://app.example/", p.PostLogoutRedirectURI())

	p = ProviderConfig{RedirectURI: "https://app.example/docs/auth/callback"}
	assert.Equal(t, "https://app.example/docs/", p.PostLogoutRedirectURI())
}

func TestProduction(t *testing.T) {
	assert.True(t, ServerConfig{Environment: "production"}.Production())
	assert.True(t, ServerConfig{Environment: "Production"}.Production())
	assert.False(t, ServerConfig{Environment: "staging"}.Production())
}
