package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestPuffCounters(t *testing.T) {
	PuffsRecorded.WithLabelValues("stress").Inc()
	PuffsUndone.Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"quitvipe_puffs_recorded_total",
		"quitvipe_puffs_undone_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestBadgeAndGoalCounters(t *testing.T) {
	BadgesAwarded.WithLabelValues("first_puff").Inc()
	BadgeEvaluationFailures.Inc()
	RetryOutcomes.WithLabelValues("succeeded").Inc()
	GoalsSet.WithLabelValues("daily").Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"quitvipe_badges_awarded_total",
		"quitvipe_badge_evaluation_failures_total",
		"quitvipe_retry_outcomes_total",
		"quitvipe_goals_set_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestStatsAndHTTPMetrics(t *testing.T) {
	StatsCache.WithLabelValues("hit").Inc()
	AggregationLatency.WithLabelValues("rolling").Observe(0.002)
	HTTPRequests.WithLabelValues("/api/puffs", "201").Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"quitvipe_stats_cache_total",
		"quitvipe_aggregation_seconds",
		"quitvipe_http_requests_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestHealthMetrics(t *testing.T) {
	HealthCheckStatus.WithLabelValues("sqlite").Set(1)
	HealthRecoveries.WithLabelValues("cache").Inc()

	names := gatheredNames(t)
	if !names["quitvipe_health_check_status"] {
		t.Error("quitvipe_health_check_status not found")
	}
	if !names["quitvipe_health_recoveries_total"] {
		t.Error("quitvipe_health_recoveries_total not found")
	}
}
