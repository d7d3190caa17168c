// Package metrics provides Prometheus metrics for Quit Vipe.
// Counters and histograms for logged puffs, badges, goals, stats caching,
// request handling and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Puffs ──────────────────────────────────────────────────────────────────

// PuffsRecorded tracks logged puff events by trigger.
var PuffsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "puffs_recorded_total",
	Help:      "Total puff events recorded, by trigger.",
}, []string{"trigger"})

// PuffsUndone tracks successful undo operations.
var PuffsUndone = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "puffs_undone_total",
	Help:      "Total puff events removed by undo.",
})

// ─── Badges ─────────────────────────────────────────────────────────────────

// BadgesAwarded tracks newly unlocked badges by type.
var BadgesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "badges_awarded_total",
	Help:      "Total badges unlocked, by badge type.",
}, []string{"badge"})

// BadgeEvaluationFailures tracks badge evaluations that failed after a
// puff was already stored.
var BadgeEvaluationFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "badge_evaluation_failures_total",
	Help:      "Badge evaluations that failed after an event was recorded.",
})

// RetryOutcomes tracks background retries by outcome
// (succeeded, rescheduled, exhausted).
var RetryOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "retry_outcomes_total",
	Help:      "Background retries by outcome.",
}, []string{"outcome"})

// ─── Goals ──────────────────────────────────────────────────────────────────

// GoalsSet tracks goal replacements by period.
var GoalsSet = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "goals_set_total",
	Help:      "Total goals set, by period.",
}, []string{"period"})

// ─── Stats ──────────────────────────────────────────────────────────────────

// StatsCache tracks rolling-stats cache lookups (hit | miss | error).
var StatsCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "stats_cache_total",
	Help:      "Rolling stats cache lookups by result.",
}, []string{"result"})

// AggregationLatency tracks aggregation query duration in seconds.
var AggregationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "quitvipe",
	Name:      "aggregation_seconds",
	Help:      "Aggregation duration in seconds, by operation.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"op"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests tracks handled API requests by route pattern and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "http_requests_total",
	Help:      "Total HTTP requests by route and status code.",
}, []string{"route", "status"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "quitvipe",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quitvipe",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
