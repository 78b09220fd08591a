package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for case lifecycle operations.
type Metrics struct {
	SubmissionsTotal prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	ConflictsTotal   prometheus.Counter
}

// New creates and registers case metrics.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_cases_submitted_total",
			Help: "Total takedown cases submitted",
		}),
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "takedown_case_transitions_total",
			Help: "Total executed case transitions by action",
		}, []string{"action"}),
		ConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_case_version_conflicts_total",
			Help: "Total optimistic-concurrency conflicts on case writes",
		}),
	}
}
