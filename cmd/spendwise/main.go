package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/advisor"
	"spendwise/internal/auth"
	"spendwise/internal/backend"
	"spendwise/internal/config"
	"spendwise/internal/events"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/sync"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting spendwise server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	result, err := backend.Create(backend.Config{
		Type:         backend.Type(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
	}, logger.WithComponent(log.ComponentStore).Logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// Event publishing is optional; without a broker the server just
	// skips notifications.
	var sink sync.EventSink
	if cfg.AMQPURL != "" {
		eventsClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer eventsClient.Close()
			sink = eventsClient
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - expense events will not be published")
	}

	authSvc := auth.NewService(result.Backend, cfg.JWTSecret,
		cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry,
		logger.WithComponent(log.ComponentAuth).Logger)

	var google *auth.GoogleAuthenticator
	if cfg.GoogleClientID != "" {
		google = auth.NewGoogleAuthenticator(cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL, authSvc, result.Backend)
		logger.Info("Google sign-in enabled")
	}

	sessions := sync.NewManager(result.Backend, sink, cfg.ProbeInterval,
		logger.WithComponent(log.ComponentSync).Logger)
	defer sessions.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Auth:               authSvc,
		Google:             google,
		Sessions:           sessions,
		Advisor:            advisor.NewClient(logger.WithComponent(log.ComponentAdvisor).Logger),
		Store:              result.Backend,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Listening", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
