package core

import "time"

// Identity represents the authenticated principal carried by a session token
type Identity struct {
	Name      string `json:"name"`  // Display name, empty if the provider omitted it
	Email     string `json:"email"` // Primary identifier of the user
	ExpiresAt int64  `json:"exp"`   // Unix seconds after which the identity is invalid
}

// ValidAt reports whether the identity is still valid at the given instant.
// An identity whose expiry equals now is already expired.
func (i Identity) ValidAt(now time.Time) bool {
	return i.ExpiresAt > now.Unix()
}

// TTL returns the remaining lifetime in whole seconds
func (i Identity) TTL(now time.Time) time.Duration {
	return time.Duration(i.ExpiresAt-now.Unix()) * time.Second
}

// Expiry returns the expiry as a time value
func (i Identity) Expiry() time.Time {
	return time.Unix(i.ExpiresAt, 0)
}

// PendingLogin represents a sign-in that was redirected to the provider and
// has not come back through the callback yet
type PendingLogin struct {
	State     string    `json:"state"`      // Opaque value echoed back by the provider
	ReturnTo  string    `json:"return_to"`  // Local path the user originally asked for
	CreatedAt time.Time `json:"created_at"` // When the redirect was issued
}

// SessionState is the per-client sign-in state
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StatePendingCallback SessionState = "pending_callback"
	StateAuthenticated   SessionState = "authenticated"
)
