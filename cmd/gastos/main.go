package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/api"
	"gastos/internal/auth"
	"gastos/internal/cli"
	"gastos/internal/config"
	apphttp "gastos/internal/http"
	"gastos/internal/journal"
	"gastos/internal/log"
	"gastos/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.MustValidate(logger, cfg.ValidateWeb)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	authn, err := auth.NewSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SessionTTL)
	if err != nil {
		logger.Error("Failed to initialize auth provider", log.FieldError, err)
		os.Exit(1)
	}
	sessions := session.NewProvider(repo, authn, logger)

	// The queue only speeds up the sheet mirror; without it the worker's
	// sweep still picks up every outbox row.
	var publisher journal.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, journal will rely on the worker sweep", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}
	outbox := journal.NewOutbox(repo, publisher, logger)

	apiClient := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, api.WithUserAgent("gastos-web"))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CookieSecure:       cfg.CookieSecure,
		TrustedProxies:     cfg.TrustedProxies,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		WorkspaceCacheSize: cfg.SessionCacheSize,
		WorkspaceTTL:       cfg.SessionTTL,
		Logger:             logger,
		Store:              repo,
	}, sessions, apiClient, outbox)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	go sweepSessions(ctx, sessions, logger)

	logger.Info("Starting gastos server", "port", cfg.Port, "api", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

// sweepSessions drops expired sessions until ctx ends.
func sweepSessions(ctx context.Context, sessions *session.Provider, logger *log.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				logger.Warn("Session sweep failed", log.FieldError, err)
				continue
			}
			if n > 0 {
				logger.Info("Expired sessions removed", "count", n, "live", sessions.Live())
			}
		}
	}
}
