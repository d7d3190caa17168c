package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/cache"
	"github.com/quitvipe/quitvipe/internal/infra/metrics"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// StatsService serves the rolling dashboard stats, cached per user and day.
type StatsService struct {
	agg     *Aggregator
	streaks *StreakCalculator
	cache   cache.Cache
	ttl     time.Duration
	log     *logger.Logger
}

// NewStatsService creates a stats service. Cache failures are logged and
// treated as misses.
func NewStatsService(agg *Aggregator, streaks *StreakCalculator, c cache.Cache, ttl time.Duration, log *logger.Logger) *StatsService {
	return &StatsService{agg: agg, streaks: streaks, cache: c, ttl: ttl, log: log}
}

func statsKey(userID, day string) string {
	return fmt.Sprintf("stats:%s:%s", userID, day)
}

// RollingStats returns the 7-day zero-filled totals, weekly total and average,
// the 30-day total and the current streak.
func (s *StatsService) RollingStats(ctx context.Context, userID string) (domain.RollingStats, error) {
	if err := domain.RequireUser(userID); err != nil {
		return domain.RollingStats{}, err
	}

	key := statsKey(userID, s.agg.TodayKey())
	if cached, ok := s.lookup(ctx, key); ok {
		return cached, nil
	}

	defer observe("rolling", time.Now())

	var (
		week    []domain.DailyTotal
		monthly int64
		streak  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		week, err = s.agg.WindowedDailyTotals(gctx, userID, s.agg.WeekStart())
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.agg.RollupTotal(gctx, userID, s.agg.MonthStart())
		return err
	})
	g.Go(func() error {
		var err error
		streak, err = s.streaks.ComputeStreak(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.RollingStats{}, fmt.Errorf("rolling stats: %w", err)
	}

	total, avg := weekSummary(week)
	stats := domain.RollingStats{
		WeeklyStats:   week,
		WeeklyTotal:   total,
		WeeklyAverage: avg,
		MonthlyTotal:  monthly,
		Streak:        streak,
		LastUpdated:   s.agg.Now(),
	}

	s.store(ctx, key, stats)
	return stats, nil
}

// Invalidate drops the user's cached stats after a write.
func (s *StatsService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, statsKey(userID, s.agg.TodayKey())); err != nil {
		s.log.Warn("stats cache invalidate failed", "user", userID, "error", err)
	}
}

func (s *StatsService) lookup(ctx context.Context, key string) (domain.RollingStats, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.StatsCache.WithLabelValues("error").Inc()
		s.log.Warn("stats cache read failed", "key", key, "error", err)
		return domain.RollingStats{}, false
	}
	if !ok {
		metrics.StatsCache.WithLabelValues("miss").Inc()
		return domain.RollingStats{}, false
	}

	var stats domain.RollingStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		metrics.StatsCache.WithLabelValues("error").Inc()
		s.log.Warn("stats cache entry corrupt", "key", key, "error", err)
		return domain.RollingStats{}, false
	}
	metrics.StatsCache.WithLabelValues("hit").Inc()
	return stats, true
}

func (s *StatsService) store(ctx context.Context, key string, stats domain.RollingStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn("stats cache write failed", "key", key, "error", err)
	}
}
