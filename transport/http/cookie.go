package http

import (
	"net/http"
	"time"

	"github.com/layer-3/leanauth/core"
)

// SessionCookie reads and writes the session cookie
type SessionCookie struct {
	Name   string
	Secure bool
}

// Read returns the raw session token, or "" when the cookie is absent
func (s SessionCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Write sets the session cookie so that it lives exactly as long as the identity
func (s SessionCookie) Write(w http.ResponseWriter, token string, identity core.Identity, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		Expires:  identity.Expiry().UTC(),
		MaxAge:   int(identity.TTL(now) / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie
func (s SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
