package ports

import (
	"context"

	"github.com/layer-3/leanauth/core"
)

// EventPublisher publishes sign-in and sign-out events
type EventPublisher interface {
	PublishLogin(ctx context.Context, identity core.Identity) error
	PublishLogout(ctx context.Context, identity core.Identity) error
}
