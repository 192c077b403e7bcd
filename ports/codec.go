package ports

import "github.com/layer-3/leanauth/core"

// SessionCodec converts between identities and session tokens
type SessionCodec interface {
	// Sign encodes the identity into a signed session token
	Sign(identity core.Identity) (string, error)

	// Verify returns the identity carried by a token, or false when the token
	// is malformed, forged or expired
	Verify(token string) (*core.Identity, bool)
}
