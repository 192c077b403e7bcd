package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/service"
	"github.com/rs/zerolog"
)

// IdentityKey is the gin context key of the admitted identity
const IdentityKey = "identity"

// Gate creates middleware that admits requests carrying a valid session
// cookie and redirects every other request to the identity provider. A
// missing cookie and an invalid one produce the same response. When
// pendingLimiter is set, clients over its rate are redirected without a
// remembered return-to path, so they cannot fill the pending store.
func Gate(authService *service.AuthService, cookies SessionCookie, pendingLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := authService.Authenticate(cookies.Read(c.Request))
		if !ok {
			returnTo := ""
			if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
				returnTo = c.Request.URL.RequestURI()
			}
			if returnTo != "" && pendingLimiter != nil && !pendingLimiter.Allow(c.ClientIP()) {
				returnTo = ""
			}
			c.Redirect(http.StatusFound, authService.BeginLogin(c.Request.Context(), returnTo))
			c.Abort()
			return
		}

		// Available to gin handlers and to plain http.Handlers behind the gate
		c.Set(IdentityKey, *identity)
		c.Request = c.Request.WithContext(core.WithIdentity(c.Request.Context(), *identity))

		c.Next()
	}
}

// RequestLogger logs one line per request. The query string is left out
// because the callback carries the authorization code in it.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
