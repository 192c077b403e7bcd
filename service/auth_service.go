package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/ports"
	"github.com/rs/zerolog"
)

const (
	// DefaultPendingTTL bounds how long a user may stay at the provider
	DefaultPendingTTL = 10 * time.Minute

	maxReturnToLength = 2048
)

// AuthService handles the sign-in state machine: unauthenticated requests are
// sent to the provider, callbacks are exchanged and signed into a session
// token, and session tokens are verified on every request
type AuthService struct {
	codec     ports.SessionCodec
	exchanger ports.TokenExchanger
	store     ports.PendingStore
	eventPub  ports.EventPublisher
	logger    zerolog.Logger
	logoutURL string

	pendingTTL time.Duration
	now        func() time.Time
}

// Option customizes an AuthService
type Option func(*AuthService)

// WithPendingStore enables return-to tracking through the provider round trip
func WithPendingStore(store ports.PendingStore) Option {
	return func(s *AuthService) {
		s.store = store
	}
}

// WithEventPublisher sets where sign-in and sign-out events go
func WithEventPublisher(eventPub ports.EventPublisher) Option {
	return func(s *AuthService) {
		s.eventPub = eventPub
	}
}

// WithLogger sets the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *AuthService) {
		s.logger = logger
	}
}

// WithClock overrides the clock
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

// LoginResult is the outcome of a completed callback
type LoginResult struct {
	Token    string
	Identity core.Identity
	ReturnTo string
}

// NewAuthService creates a new authentication service
func NewAuthService(
	codec ports.SessionCodec,
	exchanger ports.TokenExchanger,
	logoutURL string,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		codec:      codec,
		exchanger:  exchanger,
		logoutURL:  logoutURL,
		logger:     zerolog.Nop(),
		pendingTTL: DefaultPendingTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate verifies a session token taken from the request. Missing,
// malformed, forged and expired tokens are all reported the same way.
func (s *AuthService) Authenticate(token string) (*core.Identity, bool) {
	if token == "" {
		return nil, false
	}
	return s.codec.Verify(token)
}

// BeginLogin moves the client to PendingCallback and returns the provider
// authorization URL. returnTo is remembered only when a pending store is
// configured and the path is local.
func (s *AuthService) BeginLogin(ctx context.Context, returnTo string) string {
	if s.store == nil || !IsLocalPath(returnTo) {
		return s.exchanger.AuthCodeURL("")
	}

	login := core.PendingLogin{
		State:     uuid.NewString(),
		ReturnTo:  returnTo,
		CreatedAt: s.now(),
	}
	if err := s.store.Put(ctx, login, s.pendingTTL); err != nil {
		if errors.Is(err, core.ErrPendingStoreFull) {
			s.logger.Debug().Msg("pending login store full, continuing without state")
		} else {
			s.logger.Warn().Err(err).Msg("failed to store pending login, continuing without state")
		}
		return s.exchanger.AuthCodeURL("")
	}

	s.logger.Debug().
		Str("from", string(core.StateUnauthenticated)).
		Str("to", string(core.StatePendingCallback)).
		Str("return_to", returnTo).
		Msg("session state")

	return s.exchanger.AuthCodeURL(login.State)
}

// CompleteLogin handles the provider callback: it exchanges the code, signs
// the resulting identity and resolves where the user goes next. Failures are
// terminal for this attempt; nothing is retried.
func (s *AuthService) CompleteLogin(ctx context.Context, code, state string) (*LoginResult, error) {
	if code == "" {
		return nil, core.ErrMissingCode
	}

	identity, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	if !identity.ValidAt(s.now()) {
		return nil, fmt.Errorf("%w: identity already expired", core.ErrMalformedToken)
	}

	token, err := s.codec.Sign(*identity)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	returnTo := s.resolveReturnTo(ctx, state)

	s.logger.Info().
		Str("from", string(core.StatePendingCallback)).
		Str("to", string(core.StateAuthenticated)).
		Str("email", identity.Email).
		Time("expires_at", identity.Expiry()).
		Msg("session state")

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, *identity); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish login event")
		}
	}

	return &LoginResult{
		Token:    token,
		Identity: *identity,
		ReturnTo: returnTo,
	}, nil
}

// Logout returns the provider logout URL. A still-valid session token is
// used only to attribute the logout event; nothing is revoked server-side.
func (s *AuthService) Logout(ctx context.Context, token string) string {
	if identity, ok := s.Authenticate(token); ok {
		s.logger.Info().
			Str("from", string(core.StateAuthenticated)).
			Str("to", string(core.StateUnauthenticated)).
			Str("email", identity.Email).
			Msg("session state")

		if s.eventPub != nil {
			if err := s.eventPub.PublishLogout(ctx, *identity); err != nil {
				s.logger.Warn().Err(err).Msg("failed to publish logout event")
			}
		}
	}

	return s.logoutURL
}

func (s *AuthService) resolveReturnTo(ctx context.Context, state string) string {
	if s.store == nil || state == "" {
		return "/"
	}

	login, err := s.store.Take(ctx, state)
	if err != nil {
		if !errors.Is(err, core.ErrPendingLoginNotFound) {
			s.logger.Warn().Err(err).Msg("failed to load pending login")
		}
		return "/"
	}

	if !IsLocalPath(login.ReturnTo) {
		return "/"
	}
	return login.ReturnTo
}

// IsLocalPath reports whether p is an absolute path on this host, rejecting
// scheme-relative and backslash forms that browsers treat as other hosts
func IsLocalPath(p string) bool {
	if p == "" || len(p) > maxReturnToLength || p[0] != '/' {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}
