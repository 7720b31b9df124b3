// Package metrics defines the Prometheus collectors shared by the ranking
// pipeline. Collectors are always live; Register exposes them on a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stages of RuleFailures. Rule names stay out of the label set; they are
// logged instead.
const (
	RuleInvalid = "invalid"
	RuleParse   = "parse"
	RuleEval    = "eval"
)

var (
	// Rules that were skipped or did not fire because of an error, by stage
	RuleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hybrid_rank_rule_failures_total",
		Help: "Rules skipped as invalid or whose condition failed to parse or evaluate",
	}, []string{"stage"})

	RankDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hybrid_rank_rank_duration_seconds",
		Help:    "Latency of a complete ranking pass",
		Buckets: prometheus.DefBuckets,
	})

	// Ranking passes by candidate source: search or catalog
	RankPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hybrid_rank_rank_passes_total",
		Help: "Total ranking passes by candidate source",
	}, []string{"source"})

	// Searches that fell back to the full catalog, by reason: error or empty
	SearchFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hybrid_rank_search_fallbacks_total",
		Help: "Similarity searches that fell back to the full catalog",
	}, []string{"reason"})

	FeedbackEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hybrid_rank_feedback_events_total",
		Help: "Preference feedback events by type",
	}, []string{"type"})

	// Learning events dropped because the tracker queue was full
	TrackerDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hybrid_rank_tracker_dropped_total",
		Help: "Learning events dropped because the tracker queue was full",
	})
)

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RuleFailures,
		RankDuration,
		RankPasses,
		SearchFallbacks,
		FeedbackEvents,
		TrackerDropped,
	}
}

// Register adds the collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
