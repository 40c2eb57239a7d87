package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/config"
	apihttp "github.com/rezkam/cadence/internal/infrastructure/http"
	"github.com/rezkam/cadence/internal/infrastructure/http/handler"
	"github.com/rezkam/cadence/internal/infrastructure/observability"
	"github.com/rezkam/cadence/internal/infrastructure/persistence"
	"github.com/rezkam/cadence/internal/recurring"
	"github.com/rezkam/cadence/internal/schedule"
)

func main() {
	if err := run(); err != nil {
		// slog may not be initialized if config fails
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	// Root context for all normal operations, cancelled on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		// Bounded so an unreachable collector cannot hang exit
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "Failed to shutdown observability providers", "error", err)
		}
	}()

	slog.InfoContext(ctx, "Starting cadence API server", "driver", cfg.Database.Driver)

	store, err := persistence.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	generator := recurring.NewDomainGenerator()
	trackerService := tracker.NewService(store, generator, tracker.Config{
		HorizonYearsAhead: cfg.Tracker.HorizonYearsAhead,
		MaxWindowYears:    cfg.Tracker.MaxWindowYears,
	})

	parser := schedule.NewParser()
	imp, err := importer.New(trackerService, generator,
		importer.WithParser(parser),
		importer.WithMaxYears(cfg.Tracker.MaxWindowYears),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to create importer: %w", err)
	}

	h := handler.NewHandler(trackerService, imp, parser)
	apiHandler, err := h.Routes()
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to create API router: %w", err)
	}
	server := apihttp.NewAPIServer(apiHandler, apihttp.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	})

	errResult := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	// Keep the shutdown sequence visible in run()
	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down")

		shutdownCtx, cancel := newShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		newCleanup(shutdownCtx, server, store)()

		slog.InfoContext(shutdownCtx, "Server shutdown complete")
		return nil
	case err := <-errResult:
		newCleanup(context.Background(), nil, store)()
		return err
	}
}

// newShutdownContext creates a fresh context with timeout for graceful shutdown.
// The root context is already cancelled at shutdown time.
func newShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
