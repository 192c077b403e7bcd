package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/leanauth/config"
	"github.com/layer-3/leanauth/service"
	"github.com/rs/zerolog"
)

// RouterOptions configures the router
type RouterOptions struct {
	Cookies         SessionCookie
	StaticDir       string
	CallbackLimiter *RateLimiter
	PendingLimiter  *RateLimiter
	Logger          zerolog.Logger
}

// SetupRouter sets up the gin router: the callback, logout and health
// endpoints are open, everything else passes through the gate first
func SetupRouter(authService *service.AuthService, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(opts.Logger), gin.Recovery())

	handlers := NewAuthHandlers(authService, opts.Cookies, opts.Logger)
	gate := Gate(authService, opts.Cookies, opts.PendingLimiter)

	// Unprotected routes
	callback := []gin.HandlerFunc{handlers.Callback}
	if opts.CallbackLimiter != nil {
		callback = append([]gin.HandlerFunc{opts.CallbackLimiter.Middleware()}, callback...)
	}
	router.GET(config.CallbackPath, callback...)
	router.GET(config.LogoutPath, handlers.Logout)
	router.GET("/healthz", handlers.Health)

	// Protected routes
	api := router.Group("/api")
	api.Use(gate)
	{
		api.GET("/me", handlers.Me)
	}

	// Everything else is the static site
	router.NoRoute(gate, gin.WrapH(http.FileServer(http.Dir(opts.StaticDir))))

	return router
}
