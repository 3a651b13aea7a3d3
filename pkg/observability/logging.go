package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/formwire/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write the cycle trail to logger:
// state transitions and rules at debug, the cycle outcome at info, or warn
// when the cycle failed.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state", "session_id", e.SessionID, "from", e.From, "state", e.To)
		},
		OnRuleApplied: func(ctx context.Context, e *domain.RuleEvent) {
			logger.DebugContext(ctx, "rule applied",
				"session_id", e.SessionID,
				"field_id", e.TriggerID,
				"action", e.Action,
				"targets", e.Targets,
				"pass", e.Pass,
			)
		},
		OnCycleEnd: func(ctx context.Context, e *domain.CycleEvent) {
			level := slog.LevelInfo
			if e.Err != nil {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "cycle",
				"session_id", e.SessionID,
				"form_id", e.FormID,
				"field_id", e.Event.FieldID,
				"kind", e.Event.Kind,
				"outcome", e.Outcome,
				"commands", e.Commands,
				"duration", e.Duration,
				"err", e.Err,
			)
		},
	}
}
