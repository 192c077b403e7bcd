package ports

import (
	"context"

	"github.com/layer-3/leanauth/core"
)

// TokenExchanger trades an authorization code for identity claims
type TokenExchanger interface {
	Exchange(ctx context.Context, code string) (*core.Identity, error)

	// AuthCodeURL returns the provider authorization URL; state may be empty
	AuthCodeURL(state string) string
}
