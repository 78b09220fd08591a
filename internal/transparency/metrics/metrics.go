package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the transparency log.
type Metrics struct {
	AppendsTotal      prometheus.Counter
	VerifyRunsTotal   prometheus.Counter
	IntegrityFailures prometheus.Counter
}

// New creates and registers transparency log metrics.
func New() *Metrics {
	return &Metrics{
		AppendsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_transparency_appends_total",
			Help: "Total entries appended to the transparency log",
		}),
		VerifyRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_transparency_verify_runs_total",
			Help: "Total log-wide verification runs",
		}),
		IntegrityFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "takedown_transparency_integrity_failures_total",
			Help: "Total entries that failed checksum verification",
		}),
	}
}
