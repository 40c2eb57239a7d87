package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/config"
	"github.com/rezkam/cadence/internal/infrastructure/observability"
	"github.com/rezkam/cadence/internal/infrastructure/persistence"
	"github.com/rezkam/cadence/internal/recurring"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.csv>",
		Short: "Create a definition per row and populate its instances",
		Long: `Import every row of a CSV export as a definition and generate its instances
from January 1 of --from-year through December 31 of --to-year. Invalid rows
are reported and skipped. Storage is selected by the CADENCE_DB_* environment.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Int("from-year", 0, "First year to populate (default: current year)")
	cmd.Flags().Int("to-year", 0, "Last year to populate (default: end of the horizon)")
	cmd.Flags().Bool("strict", false, "Exit non-zero if any row was invalid or failed")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	fromYear, _ := cmd.Flags().GetInt("from-year")
	toYear, _ := cmd.Flags().GetInt("to-year")
	strict, _ := cmd.Flags().GetBool("strict")

	rows, err := readFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.LoadImporterConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
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

	generator := recurring.NewDomainGenerator()
	trackerService := tracker.NewService(store, generator, tracker.Config{
		HorizonYearsAhead: cfg.Tracker.HorizonYearsAhead,
		MaxWindowYears:    cfg.Tracker.MaxWindowYears,
	})

	opts := []importer.Option{importer.WithMaxYears(cfg.Tracker.MaxWindowYears)}
	if cfg.Concurrency > 0 {
		opts = append(opts, importer.WithConcurrency(cfg.Concurrency))
	}
	imp, err := importer.New(trackerService, generator, opts...)
	if err != nil {
		return fmt.Errorf("failed to create importer: %w", err)
	}

	if fromYear == 0 {
		fromYear = trackerService.Today().Year
	}
	if toYear == 0 {
		toYear = trackerService.HorizonEnd().Year
	}

	summary, err := imp.Import(ctx, rows, fromYear, toYear)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if err := writeSummary(cmd.OutOrStdout(), format, summary); err != nil {
		return err
	}
	if strict && summary.Invalid+summary.Failed > 0 {
		return fmt.Errorf("%d rows invalid, %d rows failed", summary.Invalid, summary.Failed)
	}
	return nil
}

func readFile(path string) ([]importer.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := importer.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}
