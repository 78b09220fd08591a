package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the SLA worker.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleErrors      prometheus.Counter
	EscalationsTotal prometheus.Counter
	WarningsTotal    prometheus.Counter
	ConflictSkips    prometheus.Counter
}

// New creates and registers SLA worker metrics.
func New() *Metrics {
	return &Metrics{
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_sla_cycles_total",
			Help: "Total completed SLA worker cycles",
		}),
		CycleErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_sla_cycle_errors_total",
			Help: "Total SLA worker cycles that failed",
		}),
		EscalationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_sla_escalations_total",
			Help: "Total automatic escalations executed",
		}),
		WarningsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_sla_warnings_total",
			Help: "Total near-deadline warnings sent",
		}),
		ConflictSkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_sla_conflict_skips_total",
			Help: "Total escalations skipped because another writer won the version race",
		}),
	}
}
