// Package tracker implements Quit Vipe's core: day bucketing, aggregation,
// streaks, goal progress, the badge rule engine and the services the API and
// CLI call. Every operation takes the authenticated user id explicitly.
package tracker

import (
	"context"
	"time"

	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/cache"
	"github.com/quitvipe/quitvipe/internal/infra/scheduler"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// Store is everything the tracker persists. infra/sqlite.DB satisfies it.
type Store interface {
	domain.EventStore
	domain.GoalStore
	domain.BadgeStore
	domain.ProfileStore
	domain.NotificationStore
}

// Options tunes day boundaries and badge rules.
type Options struct {
	Location        *time.Location // reference zone for day keys
	StreakLookback  int            // days before today the streak walk may reach
	TodayGrace      bool           // an empty today does not break the streak
	DefaultBaseline int            // puffs/day assumed when a profile has none
	MaxBackdate     time.Duration  // oldest accepted occurred_at
	StatsTTL        time.Duration  // rolling stats cache lifetime
	BadgeRetry      scheduler.RetryConfig
}

// DefaultOptions returns the stock tracker tuning.
func DefaultOptions() Options {
	return Options{
		Location:        time.UTC,
		StreakLookback:  30,
		TodayGrace:      true,
		DefaultBaseline: 200,
		MaxBackdate:     30 * 24 * time.Hour,
		StatsTTL:        5 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Location == nil {
		o.Location = d.Location
	}
	if o.StreakLookback <= 0 {
		o.StreakLookback = d.StreakLookback
	}
	if o.DefaultBaseline < 0 {
		o.DefaultBaseline = d.DefaultBaseline
	}
	if o.MaxBackdate <= 0 {
		o.MaxBackdate = d.MaxBackdate
	}
	if o.StatsTTL <= 0 {
		o.StatsTTL = d.StatsTTL
	}
	return o
}

// Tracker bundles the services wired over one store.
type Tracker struct {
	Aggregates    *Aggregator
	Streaks       *StreakCalculator
	Stats         *StatsService
	Goals         *GoalService
	Badges        *BadgeEngine
	Notifications *NotificationService
	Puffs         *PuffService
	Profiles      *ProfileService
	BadgeRetries  *scheduler.RetryQueue

	log *logger.Logger
}

// New wires every tracker service. A nil cache disables stats caching, a nil
// clock uses the wall clock and a nil logger discards output.
func New(store Store, c cache.Cache, clock Clock, log *logger.Logger, opts Options) *Tracker {
	opts = opts.withDefaults()
	if c == nil {
		c = cache.Nop{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}

	days := NewBucketer(opts.Location)
	agg := NewAggregator(store, days, clock)
	streaks := NewStreakCalculator(agg, opts.StreakLookback, opts.TodayGrace)
	stats := NewStatsService(agg, streaks, c, opts.StatsTTL, log.With("service", "stats"))
	notifications := NewNotificationService(store, clock)
	goals := NewGoalService(store, agg, clock)
	badges := NewBadgeEngine(store, agg, notifications, clock, log.With("service", "badges"), opts)
	retries := scheduler.NewRetryQueue(opts.BadgeRetry)

	return &Tracker{
		Aggregates:    agg,
		Streaks:       streaks,
		Stats:         stats,
		Goals:         goals,
		Badges:        badges,
		Notifications: notifications,
		Puffs:         NewPuffService(store, agg, stats, badges, retries, clock, log.With("service", "puffs"), opts.MaxBackdate),
		Profiles:      NewProfileService(store, stats, clock),
		BadgeRetries:  retries,
		log:           log.With("service", "badge_retry"),
	}
}

// RunBadgeRetries re-runs badge evaluations that failed during Record until
// ctx ends.
func (t *Tracker) RunBadgeRetries(ctx context.Context) {
	t.BadgeRetries.Run(ctx, t.log, t.reevaluate)
}

// RetryBadgesOnce processes the retries whose backoff has expired.
func (t *Tracker) RetryBadgesOnce(ctx context.Context) {
	t.BadgeRetries.RunOnce(ctx, t.log, t.reevaluate)
}

func (t *Tracker) reevaluate(ctx context.Context, userID string) error {
	_, err := t.Badges.Evaluate(ctx, userID)
	return err
}
