package migration

import (
	"context"
	"time"

	"github.com/amp-labs/amp-uow/logger"
)

// Logger provides logging hooks for plan execution.
type Logger interface {
	PlanStarted(ctx context.Context, plan string, from string)
	TransitionStarted(ctx context.Context, transition Transition)
	TransitionCompleted(ctx context.Context, transition Transition, duration time.Duration, err error)
	PlanCompleted(ctx context.Context, result *ExecutedPlan, duration time.Duration)
}

// DefaultLogger implements Logger with the context logger.
type DefaultLogger struct{}

// NewDefaultLogger creates a new default logger.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

func (l *DefaultLogger) PlanStarted(ctx context.Context, plan string, from string) {
	logger.Get(ctx).Info("migration plan started", "plan", plan, "from", from)
}

func (l *DefaultLogger) TransitionStarted(ctx context.Context, transition Transition) {
	logger.Get(ctx).Info("migration started",
		"migration", string(transition.Type),
		"from", transition.Source,
		"to", transition.Target)
}

func (l *DefaultLogger) TransitionCompleted(
	ctx context.Context,
	transition Transition,
	duration time.Duration,
	err error,
) {
	fields := []any{
		"migration", string(transition.Type),
		"from", transition.Source,
		"to", transition.Target,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		fields = append(fields, "error", err)
		logger.Get(ctx).Error("migration failed", fields...)

		return
	}

	logger.Get(ctx).Info("migration completed", fields...)
}

func (l *DefaultLogger) PlanCompleted(ctx context.Context, result *ExecutedPlan, duration time.Duration) {
	fields := []any{
		"plan", result.Plan().Name(),
		"from", result.InitialState(),
		"to", result.FinalState(),
		"transitions", len(result.completed),
		"duration_ms", duration.Milliseconds(),
	}

	if err := result.Err(); err != nil {
		fields = append(fields, "error", err)
		logger.Get(ctx).Error("migration plan failed", fields...)

		return
	}

	logger.Get(ctx).Info("migration plan completed", fields...)
}

// NoopLogger discards every hook.
type NoopLogger struct{}

func (NoopLogger) PlanStarted(context.Context, string, string)                          {}
func (NoopLogger) TransitionStarted(context.Context, Transition)                        {}
func (NoopLogger) TransitionCompleted(context.Context, Transition, time.Duration, error) {}
func (NoopLogger) PlanCompleted(context.Context, *ExecutedPlan, time.Duration)          {}
