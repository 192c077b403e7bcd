package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/leanauth/config"
	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/ports"
	"golang.org/x/oauth2"
)

// OIDCExchanger implements the TokenExchanger interface against an OAuth2
// token endpoint that returns an OIDC id_token
type OIDCExchanger struct {
	oauth     *oauth2.Config
	transport http.RoundTripper
	timeout   time.Duration
}

// NewOIDCExchanger creates a new exchanger for the configured provider
func NewOIDCExchanger(cfg config.ProviderConfig) ports.TokenExchanger {
	return &OIDCExchanger{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(config.Scopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL(),
				TokenURL:  cfg.TokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		transport: http.DefaultTransport,
		timeout:   cfg.ExchangeTimeout,
	}
}

// AuthCodeURL returns the authorization URL the gate redirects to
func (e *OIDCExchanger) AuthCodeURL(state string) string {
	return e.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// Exchange trades the code for identity claims with a single call to the
// token endpoint. The id_token is decoded without checking the provider's
// signature: it was received directly from the token endpoint over TLS.
func (e *OIDCExchanger) Exchange(ctx context.Context, code string) (*core.Identity, error) {
	if code == "" {
		return nil, core.ErrMissingCode
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	recorder := &statusRecorder{base: e.transport}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: e.timeout, Transport: recorder})

	token, err := e.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("scope", config.Scopes))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &core.ExchangeError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		// a success status with an unusable body is the provider's payload at fault
		if recorder.succeeded() {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrExchangeFailed, err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, fmt.Errorf("%w: id_token missing from token response", core.ErrMalformedToken)
	}

	return DecodeIdentity(idToken)
}

// DecodeIdentity extracts name, email and expiry from the claims segment of
// an id_token. The header and signature segments are not interpreted.
func DecodeIdentity(idToken string) (*core.Identity, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", core.ErrMalformedToken, len(parts))
	}

	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}
	if exp == nil {
		return nil, fmt.Errorf("%w: exp claim missing", core.ErrMalformedToken)
	}

	return &core.Identity{
		Name:      stringClaim(claims, "name"),
		Email:     stringClaim(claims, "preferred_username", "email"),
		ExpiresAt: exp.Unix(),
	}, nil
}

// stringClaim returns the first of the named claims present as a string, or ""
func stringClaim(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if value, ok := claims[name].(string); ok {
			return value
		}
	}
	return ""
}

// statusRecorder remembers the status of the token endpoint response so that
// failures after a 2xx can be told apart from transport failures
type statusRecorder struct {
	base   http.RoundTripper
	status int
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.base.RoundTrip(req)
	if err == nil {
		r.status = resp.StatusCode
	}
	return resp, err
}

func (r *statusRecorder) succeeded() bool {
	return r.status >= 200 && r.status < 300
}
