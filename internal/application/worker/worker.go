package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/recurring"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/rezkam/cadence/internal/application/worker"

// Defaults.
const (
	DefaultSchedule         = "@daily"
	DefaultOperationTimeout = 5 * time.Minute
)

// InstanceGenerator builds pending instances for a definition within a window.
type InstanceGenerator interface {
	GenerateInstances(def *domain.Definition, from, to civil.Date) ([]domain.Instance, error)
}

// Worker keeps every definition populated through Dec 31 of next year.
// It runs once on start and then on a cron schedule.
type Worker struct {
	repo             Repository
	generator        InstanceGenerator
	errorHandler     ErrorHandler
	schedule         string
	operationTimeout time.Duration // Timeout for a single run
	yearsAhead       int
	now              func() time.Time
	insertedCounter  metric.Int64Counter
}

// Option is a functional option for configuring Worker.
type Option func(*Worker)

// WithSchedule sets the cron spec (standard five-field or a descriptor such as @daily).
func WithSchedule(spec string) Option {
	return func(w *Worker) {
		w.schedule = spec
	}
}

// WithOperationTimeout sets the timeout for a single run.
func WithOperationTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.operationTimeout = d
	}
}

// WithHorizonYearsAhead sets how many years past the current one stay populated.
func WithHorizonYearsAhead(n int) Option {
	return func(w *Worker) {
		w.yearsAhead = n
	}
}

// WithErrorHandler sets the handler notified of per-definition failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Worker) {
		w.errorHandler = h
	}
}

// WithGenerator overrides the instance generator.
func WithGenerator(g InstanceGenerator) Option {
	return func(w *Worker) {
		w.generator = g
	}
}

// WithClock overrides the clock used to compute the horizon.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

// New creates a new Worker with the given repository and options.
func New(repo Repository, opts ...Option) (*Worker, error) {
	w := &Worker{
		repo:             repo,
		generator:        recurring.NewDomainGenerator(),
		errorHandler:     &DefaultErrorHandler{},
		schedule:         DefaultSchedule,
		operationTimeout: DefaultOperationTimeout,
		yearsAhead:       domain.DefaultHorizonYearsAhead,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	if _, err := cron.ParseStandard(w.schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", w.schedule, err)
	}
	if w.yearsAhead <= 0 {
		w.yearsAhead = domain.DefaultHorizonYearsAhead
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"cadence.worker.instances_inserted",
		metric.WithDescription("Instances inserted by the horizon worker"),
		metric.WithUnit("{instance}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create instances counter: %w", err)
	}
	w.insertedCounter = counter

	return w, nil
}

// Start runs the worker until ctx is cancelled. It populates once immediately,
// then on every schedule tick. Overlapping ticks are skipped. On shutdown it
// waits for an in-flight run to finish and returns nil.
func (w *Worker) Start(ctx context.Context) error {
	logger := cronLogger{}
	scheduler := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := scheduler.AddFunc(w.schedule, w.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule horizon run: %w", err)
	}

	slog.InfoContext(ctx, "Horizon worker started", "schedule", w.schedule)

	// Populate immediately on startup
	w.runScheduled()

	scheduler.Start()
	<-ctx.Done()

	slog.InfoContext(ctx, "Shutdown requested, waiting for in-flight run...")
	<-scheduler.Stop().Done()
	slog.InfoContext(ctx, "Horizon worker stopped gracefully")
	return nil
}

func (w *Worker) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), w.operationTimeout)
	defer cancel()

	if _, err := w.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Horizon run failed", "error", err)
	}
}

// RunResult summarizes a single horizon run.
type RunResult struct {
	Stale     int // Definitions found behind the horizon
	Populated int // Definitions brought up to the horizon
	Failed    int
	Inserted  int // Instances inserted across all definitions
}

// RunOnce executes a single horizon run: every definition populated only up to
// a date before the horizon end has the gap generated. A definition that fails
// is reported to the error handler and skipped.
func (w *Worker) RunOnce(ctx context.Context) (RunResult, error) {
	today := civil.DateOf(w.now().UTC())
	_, horizonEnd := domain.HorizonWindow(today, w.yearsAhead)

	defs, err := w.repo.FindStaleDefinitions(ctx, horizonEnd)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to find stale definitions: %w", err)
	}

	result := RunResult{Stale: len(defs)}
	slog.InfoContext(ctx, "Found definitions behind horizon", "count", len(defs), "horizon_end", horizonEnd)

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		inserted, err := w.populateWithRecovery(ctx, def, today, horizonEnd)
		result.Inserted += inserted
		if err != nil {
			result.Failed++
			if !IsPanic(err) {
				w.errorHandler.HandleError(ctx, def, err)
			}
			continue
		}
		result.Populated++
	}

	if result.Inserted > 0 {
		w.insertedCounter.Add(ctx, int64(result.Inserted))
	}

	slog.InfoContext(ctx, "Horizon run finished",
		"stale", result.Stale,
		"populated", result.Populated,
		"failed", result.Failed,
		"inserted", result.Inserted)

	return result, nil
}

// populateWithRecovery populates a definition with panic recovery.
// If population panics, captures stack trace and converts to PanicError.
func (w *Worker) populateWithRecovery(ctx context.Context, def *domain.Definition, today, horizonEnd civil.Date) (inserted int, err error) {
	defer func() {
		if r := recover(); r != nil {
			stackTrace := string(debug.Stack())
			w.errorHandler.HandlePanic(ctx, def, r, stackTrace)
			err = PanicError{Value: r, StackTrace: stackTrace}
		}
	}()
	return w.populate(ctx, def, today, horizonEnd)
}

// populate generates the gap after a definition's generated-through date one
// calendar year at a time, advancing the marker after every batch.
func (w *Worker) populate(ctx context.Context, def *domain.Definition, today, horizonEnd civil.Date) (int, error) {
	current := civil.Date{Year: today.Year, Month: time.January, Day: 1}
	if def.GeneratedThrough != nil {
		current = def.GeneratedThrough.AddDays(1)
	}

	total := 0
	for !current.After(horizonEnd) {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		batchEnd := civil.Date{Year: current.Year, Month: time.December, Day: 31}
		if batchEnd.After(horizonEnd) {
			batchEnd = horizonEnd
		}

		instances, err := w.generator.GenerateInstances(def, current, batchEnd)
		if err != nil {
			return total, err
		}

		if len(instances) > 0 {
			inserted, err := w.repo.BatchInsertInstancesIgnoreConflict(ctx, instances)
			if err != nil {
				return total, Transient(fmt.Errorf("failed to insert instances: %w", err))
			}
			total += inserted

			slog.InfoContext(ctx, "Batch populated",
				"definition_id", def.ID,
				"batch_start", current,
				"batch_end", batchEnd,
				"generated_count", len(instances),
				"inserted_count", inserted)
		}

		if err := w.repo.SetGeneratedThrough(ctx, def.ID, batchEnd); err != nil {
			return total, Transient(fmt.Errorf("failed to set generated through: %w", err))
		}

		current = batchEnd.AddDays(1)
	}

	return total, nil
}

// cronLogger routes scheduler logs through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
