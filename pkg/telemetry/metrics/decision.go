package metrics

import (
	"mercator-hq/saturn/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks metrics related to command moderation decisions.
//
// Metrics:
//   - mercator_saturn_decisions_total: Total decision count by status, reason
//   - mercator_saturn_credits_spent_total: Total credits consumed by executions
type DecisionMetrics struct {
	// Total decision count
	decisionsTotal *prometheus.CounterVec

	// Credits consumed by allowed executions
	creditsSpentTotal prometheus.Counter
}

// NewDecisionMetrics creates and registers decision metrics with the
// provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of command moderation decisions",
			},
			[]string{"status", "reason"},
		),

		creditsSpentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "credits_spent_total",
				Help:      "Total number of credits consumed by allowed executions",
			},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.creditsSpentTotal,
	)

	return dm
}

// RecordDecision records a completed moderation decision. Reason strings are
// a small fixed set, so using them as a label keeps cardinality bounded.
func (dm *DecisionMetrics) RecordDecision(status, reason string, creditConsumed bool) {
	dm.decisionsTotal.WithLabelValues(status, reason).Inc()

	if creditConsumed {
		dm.creditsSpentTotal.Inc()
	}
}
