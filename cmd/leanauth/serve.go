package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/layer-3/leanauth/adapters/codec"
	"github.com/layer-3/leanauth/adapters/events"
	"github.com/layer-3/leanauth/adapters/exchange"
	"github.com/layer-3/leanauth/adapters/store"
	"github.com/layer-3/leanauth/config"
	"github.com/layer-3/leanauth/internal/logging"
	"github.com/layer-3/leanauth/ports"
	"github.com/layer-3/leanauth/service"
	transport "github.com/layer-3/leanauth/transport/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *logFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the static site behind the sign-in gate",
		Example: `  AZURE_TENANT_ID=... AZURE_CLIENT_ID=... AZURE_CLIENT_SECRET=... \
  REDIRECT_URI=https://docs.example.com/auth/callback COOKIE_SECRET=... PORT=3000 \
  leanauth serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Init(flags.resolve(cfg.Server.LogLevel, cfg.Server.LogFormat))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := log.Logger

	if cfg.Server.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	sessionCodec, err := codec.NewHMACCodec(cfg.Session.Secret)
	if err != nil {
		return fmt.Errorf("failed to create session codec: %w", err)
	}

	var (
		pendingStore ports.PendingStore
		eventPub     ports.EventPublisher
	)
	if cfg.Server.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Server.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return fmt.Errorf("failed to create redis publisher: %w", err)
		}
		defer publisher.Close()

		pendingStore = store.NewRedisStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
		logger.Info().Msg("using redis for pending sign-ins and session events")
	} else {
		pendingStore = store.NewMemoryStore()
		eventPub = events.NewNoopPublisher()
	}

	authService := service.NewAuthService(
		sessionCodec,
		exchange.NewOIDCExchanger(cfg.Provider),
		cfg.Provider.LogoutURL(),
		service.WithPendingStore(pendingStore),
		service.WithEventPublisher(eventPub),
		service.WithLogger(logger.With().Str("component", "auth").Logger()),
	)

	router := transport.SetupRouter(authService, transport.RouterOptions{
		Cookies: transport.SessionCookie{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Server.Production(),
		},
		StaticDir:       cfg.Server.StaticDir,
		CallbackLimiter: transport.NewRateLimiter(rate.Limit(cfg.Server.CallbackRateLimit), cfg.Server.CallbackRateBurst),
		PendingLimiter:  transport.NewRateLimiter(rate.Limit(cfg.Server.CallbackRateLimit), cfg.Server.CallbackRateBurst),
		Logger:          logger.With().Str("component", "http").Logger(),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("static_dir", cfg.Server.StaticDir).
			Bool("secure_cookie", cfg.Server.Production()).
			Msg("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
