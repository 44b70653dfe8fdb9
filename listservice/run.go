// Package listservice boots the list-sync HTTP server.
package listservice

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/listsync/listsync/server/internal/api"
	"github.com/listsync/listsync/server/internal/auth"
	"github.com/listsync/listsync/server/internal/config"
	"github.com/listsync/listsync/server/internal/factory"
	"github.com/listsync/listsync/server/internal/health"
	"github.com/listsync/listsync/server/internal/logger"
	"github.com/listsync/listsync/server/internal/notify"
	"github.com/listsync/listsync/server/internal/store"
	syncer "github.com/listsync/listsync/server/internal/sync"
)

// Run starts the HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("listsync")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("kv_driver", cfg.KVDriver).
		Int("http_port", cfg.HTTPPort).
		Int("api_keys", len(cfg.APIKeys)).
		Msg("List-sync service starting")

	// Cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := factory.NewKV(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("KV backend unavailable")
		return err
	}
	defer func() { _ = backend.Close() }()

	notifier := notify.New(factory.NewPublisher(cfg, log), log)
	st := store.New(backend, notifier, log)
	reconciler := syncer.New(st, log)
	authorizer := auth.NewStaticAuthorizer(cfg.APIKeys)

	// Health monitor
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	kvChecker := health.NewKVHealthChecker(backend, log, probeTimeout)
	go kvChecker.Start(ctx, interval)
	svcHealth := health.NewServiceHealthChecker(log, kvChecker)
	go svcHealth.Start(ctx, interval)

	router := api.NewRouter(st, reconciler, authorizer, svcHealth.IsHealthy, log)

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}
