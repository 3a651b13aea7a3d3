package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/formwire/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by the event loop hooks.
type Metrics struct {
	Cycles   *prometheus.CounterVec
	Commands *prometheus.CounterVec
	Rules    *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formwire_cycles_total",
				Help: "Event cycles by outcome",
			},
			[]string{"outcome"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formwire_commands_total",
				Help: "Dispatched commands by kind",
			},
			[]string{"kind"},
		),
		Rules: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formwire_rule_applications_total",
				Help: "Dependency rules applied by action",
			},
			[]string{"action"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "formwire_cycle_duration_seconds",
				Help:    "Duration of event cycles",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
	}
	for _, c := range []prometheus.Collector{m.Cycles, m.Commands, m.Rules, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRuleApplied: func(_ context.Context, e *domain.RuleEvent) {
			m.Rules.WithLabelValues(string(e.Action)).Inc()
		},
		OnCycleEnd: func(_ context.Context, e *domain.CycleEvent) {
			m.Cycles.WithLabelValues(e.Outcome).Inc()
			m.Duration.Observe(e.Duration.Seconds())
			for _, k := range e.Commands {
				m.Commands.WithLabelValues(k).Inc()
			}
		},
	}
}
