package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations.
	OutcomeError = "error"
)

var (
	errorsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faultline",
			Name:      "errors_ingested_total",
			Help:      "Total number of normalized errors ingested, partitioned by subsystem.",
		},
		[]string{"subsystem"},
	)

	correlationsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faultline",
			Name:      "correlations_detected_total",
			Help:      "Total number of correlations detected, partitioned by pattern.",
		},
		[]string{"pattern"},
	)

	recoveryActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faultline",
			Name:      "recovery_actions_total",
			Help:      "Total number of recovery action executions, partitioned by type and outcome.",
		},
		[]string{"action_type", "outcome"},
	)

	aggregationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "faultline",
			Name:      "aggregation_seconds",
			Help:      "Per-error pipeline latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
)

// Register attaches faultline collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		errorsIngestedTotal,
		correlationsDetectedTotal,
		recoveryActionsTotal,
		aggregationDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIngestion records one ingested error and its pipeline latency.
func ObserveIngestion(subsystem string, duration time.Duration) {
	errorsIngestedTotal.WithLabelValues(subsystem).Inc()
	if duration < 0 {
		duration = 0
	}
	aggregationDurationSeconds.Observe(duration.Seconds())
}

// ObserveCorrelation records one detected correlation.
func ObserveCorrelation(pattern string) {
	correlationsDetectedTotal.WithLabelValues(pattern).Inc()
}

// ObserveRecoveryAction records one recovery action execution attempt.
func ObserveRecoveryAction(actionType, outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	recoveryActionsTotal.WithLabelValues(actionType, outcome).Inc()
}
