package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the PendingStore interface
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.Cmdable) ports.PendingStore {
	return &RedisStore{
		client: client,
		prefix: "leanauth:pending:",
	}
}

// Put stores the pending login with expiration
func (s *RedisStore) Put(ctx context.Context, login core.PendingLogin, ttl time.Duration) error {
	payload, err := json.Marshal(login)
	if err != nil {
		return fmt.Errorf("failed to marshal pending login: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+login.State, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending login: %w", err)
	}

	return nil
}

// Take atomically reads and deletes the pending login
func (s *RedisStore) Take(ctx context.Context, state string) (core.PendingLogin, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.PendingLogin{}, core.ErrPendingLoginNotFound
	}
	if err != nil {
		return core.PendingLogin{}, fmt.Errorf("failed to take pending login: %w", err)
	}

	var login core.PendingLogin
	if err := json.Unmarshal(payload, &login); err != nil {
		return core.PendingLogin{}, fmt.Errorf("failed to unmarshal pending login: %w", err)
	}

	return login, nil
}
