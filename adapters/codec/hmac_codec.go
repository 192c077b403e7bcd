package codec

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/ports"
)

// Delimiter separates the payload segment from the signature segment.
// base64url never emits it, so the last occurrence is the split point.
const Delimiter = "."

var segmentEncoding = base64.RawURLEncoding

// HMACCodec implements the SessionCodec interface with HMAC-SHA256 over the
// encoded payload segment
type HMACCodec struct {
	secret []byte
	now    func() time.Time
}

// Option customizes an HMACCodec
type Option func(*HMACCodec)

// WithClock overrides the clock used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *HMACCodec) {
		c.now = now
	}
}

// NewHMACCodec creates a new codec signing with the given secret
func NewHMACCodec(secret string, opts ...Option) (ports.SessionCodec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	c := &HMACCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign converts an identity to a session token
func (c *HMACCodec) Sign(identity core.Identity) (string, error) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to encode identity: %w", err)
	}

	encoded := segmentEncoding.EncodeToString(payload)

	signature, err := c.signature(encoded)
	if err != nil {
		return "", err
	}

	return encoded + Delimiter + signature, nil
}

// Verify converts a session token back to an identity. Every structural,
// cryptographic or expiry failure yields (nil, false).
func (c *HMACCodec) Verify(token string) (*core.Identity, bool) {
	idx := strings.LastIndex(token, Delimiter)
	if idx < 0 {
		return nil, false
	}
	encoded, supplied := token[:idx], token[idx+len(Delimiter):]

	expected, err := c.signature(encoded)
	if err != nil {
		return nil, false
	}

	// hmac.Equal is constant time and rejects unequal lengths
	if !hmac.Equal([]byte(supplied), []byte(expected)) {
		return nil, false
	}

	// Expiry is read only from a payload whose signature checked out
	payload, err := segmentEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}

	var identity core.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return nil, false
	}

	if !identity.ValidAt(c.now()) {
		return nil, false
	}

	return &identity, true
}

// signature returns the encoded signature segment for an encoded payload segment
func (c *HMACCodec) signature(encoded string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(encoded, c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return segmentEncoding.EncodeToString(sig), nil
}
