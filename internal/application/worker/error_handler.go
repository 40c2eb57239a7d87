package worker

import (
	"context"
	"log/slog"

	"github.com/rezkam/cadence/internal/domain"
)

// ErrorHandler receives per-definition failures for telemetry and alerting.
// A failing definition never stops the run.
type ErrorHandler interface {
	// HandleError is called when populating a definition returns an error.
	HandleError(ctx context.Context, def *domain.Definition, err error)

	// HandlePanic is called when populating a definition panics.
	HandlePanic(ctx context.Context, def *domain.Definition, panicVal any, stackTrace string)
}

// DefaultErrorHandler logs errors and panics with structured logging.
type DefaultErrorHandler struct{}

func (h *DefaultErrorHandler) HandleError(ctx context.Context, def *domain.Definition, err error) {
	slog.ErrorContext(ctx, "Horizon population failed",
		slog.String("definition_id", def.ID),
		slog.String("definition_title", def.Title),
		slog.String("error", err.Error()),
		slog.Bool("retryable", IsRetryable(err)),
	)
}

func (h *DefaultErrorHandler) HandlePanic(ctx context.Context, def *domain.Definition, panicVal any, stackTrace string) {
	slog.ErrorContext(ctx, "Horizon population panicked",
		slog.String("definition_id", def.ID),
		slog.Any("panic_value", panicVal),
		slog.String("stack_trace", stackTrace),
	)
}
