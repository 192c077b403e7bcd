package ports

import (
	"context"
	"time"

	"github.com/layer-3/leanauth/core"
)

// PendingStore keeps sign-ins that are waiting for the provider callback
type PendingStore interface {
	Put(ctx context.Context, login core.PendingLogin, ttl time.Duration) error

	// Take returns and removes the pending login, core.ErrPendingLoginNotFound if unknown
	Take(ctx context.Context, state string) (core.PendingLogin, error)
}
