// Package testkit provides a stub identity provider for tests.
package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/leanauth/config"
)

const (
	TenantID     = "tenant-1"
	ClientID     = "client-1"
	ClientSecret = "s3cret"
	RedirectURI  = "https://app.example/auth/callback"

	providerKey = "key-only-the-provider-knows"
)

// Provider is an httptest server answering the token endpoint of TenantID
type Provider struct {
	*httptest.Server

	mu       sync.Mutex
	claims   jwt.MapClaims
	status   int
	body     string
	delay    time.Duration
	rawToken *string
	rawBody  *string
	requests []url.Values
}

// NewProvider starts a stub provider issuing id_tokens with the given claims
func NewProvider(t testing.TB, claims jwt.MapClaims) *Provider {
	t.Helper()

	p := &Provider{claims: claims}
	mux := http.NewServeMux()
	mux.HandleFunc("/"+TenantID+"/oauth2/v2.0/token", p.handleToken)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

// Fail makes the token endpoint answer with the given status and body
func (p *Provider) Fail(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.body = body
}

// Delay makes the token endpoint wait before answering
func (p *Provider) Delay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// IDToken overrides the id_token returned on success; an empty string omits it
func (p *Provider) IDToken(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawToken = &raw
}

// RawResponse makes the token endpoint answer 200 with body verbatim
func (p *Provider) RawResponse(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawBody = &body
}

// Requests returns the form bodies received so far
func (p *Provider) Requests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.requests...)
}

// Config returns provider settings pointing at the stub
func (p *Provider) Config() config.ProviderConfig {
	return config.ProviderConfig{
		TenantID:        TenantID,
		ClientID:        ClientID,
		ClientSecret:    ClientSecret,
		RedirectURI:     RedirectURI,
		Authority:       p.URL,
		ExchangeTimeout: 2 * time.Second,
	}
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.requests = append(p.requests, r.PostForm)
	status, body, delay, claims, rawToken, rawBody := p.status, p.body, p.delay, p.claims, p.rawToken, p.rawBody
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 && status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	if rawBody != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(*rawBody))
		return
	}

	resp := map[string]any{
		"access_token": "access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	switch {
	case rawToken != nil && *rawToken != "":
		resp["id_token"] = *rawToken
	case rawToken == nil:
		resp["id_token"] = MintIDToken(claims)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// MintIDToken signs claims with a key the gate never sees
func MintIDToken(claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(providerKey))
	if err != nil {
		panic(err)
	}
	return token
}
