package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/ports"
)

const (
	// LoginTopic receives an event for every completed sign-in
	LoginTopic = "auth.login"

	// LogoutTopic receives an event for every sign-out
	LogoutTopic = "auth.logout"
)

// SessionEvent represents a sign-in or sign-out
type SessionEvent struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishLogin publishes a sign-in event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, identity core.Identity) error {
	return p.publish(ctx, LoginTopic, identity)
}

// PublishLogout publishes a sign-out event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identity core.Identity) error {
	return p.publish(ctx, LogoutTopic, identity)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, identity core.Identity) error {
	event := SessionEvent{
		Name:       identity.Name,
		Email:      identity.Email,
		ExpiresAt:  identity.Expiry().UTC(),
		OccurredAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher used when no event transport is configured
func NewNoopPublisher() ports.EventPublisher {
	return NoopPublisher{}
}

func (NoopPublisher) PublishLogin(context.Context, core.Identity) error  { return nil }
func (NoopPublisher) PublishLogout(context.Context, core.Identity) error { return nil }
