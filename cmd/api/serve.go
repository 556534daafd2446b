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

	httpHandler "bank-cards/internal/adapter/http/handler"
	pgStorage "bank-cards/internal/adapter/storage/postgres"
	redisStorage "bank-cards/internal/adapter/storage/redis"
	"bank-cards/internal/core/ports"
	"bank-cards/internal/scheduler"
	"bank-cards/internal/service"

	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	jobTimeout      = 5 * time.Minute
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the card expiry scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting bank card service")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	authn := service.NewAuthenticator(a.tokenSvc, a.userRepo, log)
	authSvc := service.NewAuthService(a.userRepo, a.hashSvc, a.tokenSvc, log)
	cardSvc := service.NewCardService(a.cardRepo, a.numSvc, a.transactor, log)
	cardAdminSvc := service.NewCardAdminService(a.cardRepo, a.userRepo, a.numSvc, log)

	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Mode:           cfg.Server.Mode,
		Authenticator:  authn,
		AuthSvc:        authSvc,
		CardSvc:        cardSvc,
		CardAdminSvc:   cardAdminSvc,
		UserSvc:        a.userSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgStorage.NewHealthCheck(a.pool), redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Refresh-Token", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         cfg.CORS.MaxAge,
	})

	sched := scheduler.New(log, jobTimeout)
	if cfg.Sweeper.Enabled {
		job := scheduler.NewExpiryJob(a.sweeper, redisStorage.NewSweepLock(rdb), log)
		if err := sched.Register(cfg.Sweeper.Schedule, job); err != nil {
			return err
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sched.Stop(shutdownCtx)

	log.Info().Msg("Server exited")
	return nil
}
