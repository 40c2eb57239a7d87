package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/cadence/internal/application/worker"
	"github.com/rezkam/cadence/internal/config"
	"github.com/rezkam/cadence/internal/infrastructure/observability"
	"github.com/rezkam/cadence/internal/infrastructure/persistence"
	"github.com/rezkam/cadence/internal/recurring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		return err
	}

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "Failed to shutdown observability providers", "error", err)
		}
	}()

	store, err := persistence.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}()

	w, err := worker.New(store,
		worker.WithGenerator(recurring.NewDomainGenerator()),
		worker.WithSchedule(cfg.Schedule),
		worker.WithOperationTimeout(cfg.OperationTimeout),
		worker.WithHorizonYearsAhead(cfg.Tracker.HorizonYearsAhead),
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	if cfg.RunOnce {
		runCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
		defer cancel()

		result, err := w.RunOnce(runCtx)
		if err != nil {
			return fmt.Errorf("horizon run failed: %w", err)
		}
		if result.Failed > 0 {
			return fmt.Errorf("horizon run finished with %d failed definitions", result.Failed)
		}
		return nil
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	slog.Info("Worker shut down gracefully")
	return nil
}
