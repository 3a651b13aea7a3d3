package observability

import (
	"context"

	"github.com/aretw0/formwire/pkg/domain"
)

// Combine fans every lifecycle callback out to all given hook sets, in order.
// Nil callbacks are skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCycleStart: func(ctx context.Context, e *domain.CycleEvent) {
			for _, h := range hooks {
				if h.OnCycleStart != nil {
					h.OnCycleStart(ctx, e)
				}
			}
		},
		OnStateChange: func(ctx context.Context, e *domain.StateEvent) {
			for _, h := range hooks {
				if h.OnStateChange != nil {
					h.OnStateChange(ctx, e)
				}
			}
		},
		OnRuleApplied: func(ctx context.Context, e *domain.RuleEvent) {
			for _, h := range hooks {
				if h.OnRuleApplied != nil {
					h.OnRuleApplied(ctx, e)
				}
			}
		},
		OnCycleEnd: func(ctx context.Context, e *domain.CycleEvent) {
			for _, h := range hooks {
				if h.OnCycleEnd != nil {
					h.OnCycleEnd(ctx, e)
				}
			}
		},
	}
}
