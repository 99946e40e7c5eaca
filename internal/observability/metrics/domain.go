package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

var (
	feedsIngested = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "feeds_ingested_total",
		Help:      "Feeds accepted by the indexer, by data type.",
	}, []string{"data_type"})

	decisionsRecorded = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "decisions_recorded_total",
		Help:      "Agent decisions appended to the decision log, by decision type.",
	}, []string{"decision_type"})

	cacheLookups = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups, by result.",
	}, []string{"result"})

	providerAttempts = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "provider_attempts_total",
		Help:      "Inference provider attempts, by provider and outcome.",
	}, []string{"provider", "outcome"})

	providerLatency = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "provider_attempt_duration_seconds",
		Help:      "Duration of a single provider attempt.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider"})

	fallbacks = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "canned_fallbacks_total",
		Help:      "Requests answered with the canned response because no provider produced text.",
	}, []string{"task_type"})
)

// ObserveIngest counts an accepted feed.
func ObserveIngest(dataType string) {
	feedsIngested.WithLabelValues(dataType).Inc()
}

// ObserveDecision counts a recorded agent decision.
func ObserveDecision(decisionType string) {
	decisionsRecorded.WithLabelValues(decisionType).Inc()
}

// ObserveCacheLookup counts a response cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// ObserveProviderAttempt records the outcome and duration of one provider call.
func ObserveProviderAttempt(provider, outcome string, duration time.Duration) {
	providerAttempts.WithLabelValues(provider, outcome).Inc()
	providerLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveFallback counts a canned answer.
func ObserveFallback(taskType string) {
	fallbacks.WithLabelValues(taskType).Inc()
}
