package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/service"
	"github.com/rs/zerolog"
)

// AuthHandlers contains HTTP handlers for the sign-in entry points
type AuthHandlers struct {
	authService *service.AuthService
	cookies     SessionCookie
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookies SessionCookie, logger zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookies:     cookies,
		logger:      logger,
		now:         time.Now,
	}
}

// Callback completes the sign-in started by the gate
func (h *AuthHandlers) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		if providerErr := c.Query("error"); providerErr != "" {
			h.logger.Warn().
				Str("error", providerErr).
				Str("description", c.Query("error_description")).
				Msg("identity provider did not complete sign-in")
			c.String(http.StatusBadRequest, "Sign-in was not completed by the identity provider")
			return
		}
		h.logger.Debug().Msg("callback without code")
		c.String(http.StatusBadRequest, "Missing code parameter")
		return
	}

	result, err := h.authService.CompleteLogin(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Sign-in failed"

		var exchangeErr *core.ExchangeError
		switch {
		case errors.Is(err, core.ErrMissingCode):
			statusCode = http.StatusBadRequest
			errorMsg = "Missing code parameter"
		case errors.As(err, &exchangeErr):
			statusCode = http.StatusBadGateway
			h.logger.Error().
				Int("provider_status", exchangeErr.StatusCode).
				Str("provider_body", exchangeErr.Body).
				Msg("token exchange rejected")
		case errors.Is(err, core.ErrExchangeFailed), errors.Is(err, core.ErrMalformedToken):
			statusCode = http.StatusBadGateway
			h.logger.Error().Err(err).Msg("token exchange failed")
		default:
			h.logger.Error().Err(err).Msg("sign-in failed")
		}

		c.String(statusCode, errorMsg)
		return
	}

	h.cookies.Write(c.Writer, result.Token, result.Identity, h.now())
	c.Redirect(http.StatusFound, result.ReturnTo)
}

// Logout clears the session cookie and signs out at the provider
func (h *AuthHandlers) Logout(c *gin.Context) {
	logoutURL := h.authService.Logout(c.Request.Context(), h.cookies.Read(c.Request))

	h.cookies.Clear(c.Writer)
	c.Redirect(http.StatusFound, logoutURL)
}

// Me returns the identity admitted by the gate
func (h *AuthHandlers) Me(c *gin.Context) {
	value, exists := c.Get(IdentityKey)
	identity, ok := value.(core.Identity)
	if !exists || !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":       identity.Name,
		"email":      identity.Email,
		"expires_at": identity.Expiry().UTC(),
	})
}

// Health reports that the process is serving
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
