package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func newCodec(t *testing.T, secret string) ports.SessionCodec {
	t.Helper()
	c, err := NewHMACCodec(secret, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return c
}

func TestNewHMACCodecRequiresSecret(t *testing.T) {
	_, err := NewHMACCodec("")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	c := newCodec(t, "secret-a")

	identities := []core.Identity{
		{Name: "Ada", Email: "ada@x.com", ExpiresAt: fixedNow.Unix() + 3600},
		{Name: "", Email: "", ExpiresAt: fixedNow.Unix() + 1},
		{Name: "Zoë Ünïcode", Email: "zoe@例え.jp", ExpiresAt: fixedNow.Unix() + 86400},
		{Name: "dots.in.name", Email: "a.b.c@d.e", ExpiresAt: fixedNow.Unix() + 60},
	}

	for _, identity := range identities {
		token, err := c.Sign(identity)
		require.NoError(t, err)

		got, ok := c.Verify(token)
		require.True(t, ok, "token for %+v should verify", identity)
		assert.Equal(t, identity, *got)
	}
}

func TestSignIsDeterministic(t *testing.T) {
	c := newCodec(t, "secret-a")
	identity := core.Identity{Name: "Ada", Email: "ada@x.com", ExpiresAt: fixedNow.Unix() + 3600}

	first, err := c.Sign(identity)
	require.NoError(t, err)
	second, err := c.Sign(identity)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTokenFormat(t *testing.T) {
	c := newCodec(t, "secret-a")
	identity := core.Identity{Name: "Ada", Email: "ada@x.com", ExpiresAt: 1_700_003_600}

	token, err := c.Sign(identity)
	require.NoError(t, err)

	parts := strings.Split(token, Delimiter)
	require.Len(t, parts, 2)

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ada","email":"ada@x.com","exp":1700003600}`, string(payload))

	mac := hmac.New(sha256.New, []byte("secret-a"))
	mac.Write([]byte(parts[0]))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), parts[1])
}

func TestTamperRejection(t *testing.T) {
	c := newCodec(t, "secret-a")
	token, err := c.Sign(core.Identity{Name: "Ada", Email: "ada@x.com", ExpiresAt: fixedNow.Unix() + 3600})
	require.NoError(t, err)

	split := strings.LastIndex(token, Delimiter)
	for i := 0; i < len(token); i++ {
		if i == split {
			continue
		}
		tampered := []byte(token)
		tampered[i] ^= 0x01

		got, ok := c.Verify(string(tampered))
		assert.False(t, ok, "flipping byte %d must invalidate the token", i)
		assert.Nil(t, got)
	}
}

func TestExpiryBoundary(t *testing.T) {
	c := newCodec(t, "secret-a")

	tests := []struct {
		name  string
		exp   int64
		valid bool
	}{
		{"expires now", fixedNow.Unix(), false},
		{"one second left", fixedNow.Unix() + 1, true},
		{"expired one second ago", fixedNow.Unix() - 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := c.Sign(core.Identity{Name: "Ada", Email: "ada@x.com", ExpiresAt: tt.exp})
			require.NoError(t, err)

			_, ok := c.Verify(token)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestWrongSecret(t *testing.T) {
	secrets := []string{"secret-a", "secret-b", "secret-a ", "S", "a much longer secret value than the others"}
	identity := core.Identity{Name: "Ada", Email: "ada@x.com", ExpiresAt: fixedNow.Unix() + 3600}

	for _, a := range secrets {
		token, err := newCodec(t, a).Sign(identity)
		require.NoError(t, err)

		for _, b := range secrets {
			_, ok := newCodec(t, b).Verify(token)
			assert.Equal(t, a == b, ok, "signed with %q, verified with %q", a, b)
		}
	}
}

func TestDelimiterRobustness(t *testing.T) {
	c := newCodec(t, "secret-a")

	for _, token := range []string{
		"",
		"no-delimiter-here",
		".",
		"payload.",
		".signature",
		"a.b.c",
		"!!!not base64!!!.sig",
	} {
		got, ok := c.Verify(token)
		assert.False(t, ok, "token %q", token)
		assert.Nil(t, got)
	}
}

func TestValidSignatureOverGarbagePayload(t *testing.T) {
	c := newCodec(t, "secret-a")

	for _, encoded := range []string{"not*base64", base64.RawURLEncoding.EncodeToString([]byte("not json"))} {
		mac := hmac.New(sha256.New, []byte("secret-a"))
		mac.Write([]byte(encoded))
		token := encoded + Delimiter + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

		_, ok := c.Verify(token)
		assert.False(t, ok, "payload %q", encoded)
	}
}

func TestDefaultClock(t *testing.T) {
	c, err := NewHMACCodec("secret-a")
	require.NoError(t, err)

	token, err := c.Sign(core.Identity{Email: "ada@x.com", ExpiresAt: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)
	_, ok := c.Verify(token)
	assert.True(t, ok)

	token, err = c.Sign(core.Identity{Email: "ada@x.com", ExpiresAt: time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, err)
	_, ok = c.Verify(token)
	assert.False(t, ok)
}
