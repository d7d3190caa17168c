package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/metrics"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// ─── Rule Registry ──────────────────────────────────────────────────────────

// BadgeRule is the display metadata and unlock predicate of one badge type.
// A rule with a nil Predicate is listed in the catalog but never fires.
type BadgeRule struct {
	Type        domain.BadgeType
	Name        string
	Description string
	Icon        string
	Predicate   func(h History) bool
}

// DefaultBadgeRules returns a rule for every badge type, in catalog order.
func DefaultBadgeRules() []BadgeRule {
	return []BadgeRule{
		{
			Type: domain.BadgeFirstPuff, Name: "First Step", Icon: "🎯",
			Description: "First puff tracked!",
			Predicate:   func(h History) bool { return h.LifetimeCount >= 1 },
		},
		{
			Type: domain.BadgeThreeDayStreak, Name: "Consistency", Icon: "🔥",
			Description: "3 days tracked in a row!",
			Predicate:   func(h History) bool { return h.Streak() >= 3 },
		},
		{
			Type: domain.BadgeGoalHitThreeDays, Name: "On Target", Icon: "🏆",
			Description: "Hit your goal for 3 days",
			Predicate:   func(h History) bool { return h.GoalHitRun() >= 3 },
		},
		{
			Type: domain.BadgeHundredPuffsAvoided, Name: "Century Club", Icon: "💯",
			Description: "Avoided 100 puffs",
			Predicate:   func(h History) bool { return h.PuffsAvoided() >= 100 },
		},
		{
			Type: domain.BadgeWeekStreak, Name: "Week Warrior", Icon: "⚡",
			Description: "7 days tracked in a row",
			Predicate:   func(h History) bool { return h.Streak() >= 7 },
		},
		{
			Type: domain.BadgeMonthStreak, Name: "Month Master", Icon: "👑",
			Description: "30 days tracked in a row",
			Predicate:   func(h History) bool { return h.Streak() >= 30 },
		},
		{
			Type: domain.BadgeZeroPuffsDay, Name: "Zero Hero", Icon: "🌟",
			Description: "A day with zero puffs",
			Predicate:   func(h History) bool { return h.HasZeroDay() },
		},
		{
			Type: domain.BadgeGoalMaster, Name: "Goal Master", Icon: "🎖️",
			Description: "Hit your goal 14 days in a row",
			Predicate:   func(h History) bool { return h.GoalHitRun() >= 14 },
		},
	}
}

// ─── History Snapshot ───────────────────────────────────────────────────────

// History is the read-only view of a user's past that predicates run on.
// Days is zero-filled and ascending, ending with Today.
type History struct {
	Today         string
	LifetimeCount int64
	FirstDay      string // day of the earliest event, "" when none
	Days          []domain.DailyTotal
	Goal          *domain.Goal
	GoalDay       string // day the active goal was set
	Baseline      int    // pre-quit puffs per day
	TodayGrace    bool
}

// Streak applies the dashboard streak walk to the snapshot.
func (h History) Streak() int {
	return Streak(h.Days, h.Today, h.TodayGrace)
}

// completedDays returns tracked days before today, newest first. A day is
// tracked once it is on or after the first event day.
func (h History) completedDays() []domain.DailyTotal {
	if h.FirstDay == "" {
		return nil
	}
	var out []domain.DailyTotal
	for i := len(h.Days) - 1; i >= 0; i-- {
		d := h.Days[i]
		if d.Day >= h.Today || d.Day < h.FirstDay {
			continue
		}
		out = append(out, d)
	}
	return out
}

// GoalHitRun counts consecutive completed days, ending yesterday, on which
// the active goal's daily allowance was met. Days before the goal was set do
// not count.
func (h History) GoalHitRun() int {
	if h.Goal == nil {
		return 0
	}
	daily := h.Goal.DailyCap()
	expect := ShiftDay(h.Today, -1)

	n := 0
	for _, d := range h.completedDays() {
		if d.Day != expect || d.Day < h.GoalDay || float64(d.Total) > daily {
			break
		}
		n++
		expect = ShiftDay(expect, -1)
	}
	return n
}

// PuffsAvoided sums the shortfall against the baseline over completed days.
func (h History) PuffsAvoided() int64 {
	var avoided int64
	for _, d := range h.completedDays() {
		if gap := int64(h.Baseline) - d.Total; gap > 0 {
			avoided += gap
		}
	}
	return avoided
}

// HasZeroDay reports whether some completed day had no puffs.
func (h History) HasZeroDay() bool {
	for _, d := range h.completedDays() {
		if d.Total == 0 {
			return true
		}
	}
	return false
}

// ─── Engine ─────────────────────────────────────────────────────────────────

type badgeSources interface {
	domain.EventStore
	domain.GoalStore
	domain.BadgeStore
	domain.ProfileStore
}

// BadgeEngine evaluates the rule registry against a user's history and
// awards badges. Awarding relies on the store's unique (user, type) insert,
// so concurrent evaluations never produce duplicates.
type BadgeEngine struct {
	store           badgeSources
	agg             *Aggregator
	notifications   *NotificationService
	clock           Clock
	log             *logger.Logger
	rules           []BadgeRule
	byType          map[domain.BadgeType]BadgeRule
	lookback        int
	grace           bool
	defaultBaseline int
}

// NewBadgeEngine creates an engine with the default rule registry.
func NewBadgeEngine(store badgeSources, agg *Aggregator, notifications *NotificationService, clock Clock, log *logger.Logger, opts Options) *BadgeEngine {
	e := &BadgeEngine{
		store:           store,
		agg:             agg,
		notifications:   notifications,
		clock:           clock,
		log:             log,
		lookback:        opts.StreakLookback,
		grace:           opts.TodayGrace,
		defaultBaseline: opts.DefaultBaseline,
	}
	e.setRules(DefaultBadgeRules())
	return e
}

func (e *BadgeEngine) setRules(rules []BadgeRule) {
	e.rules = rules
	e.byType = make(map[domain.BadgeType]BadgeRule, len(rules))
	for _, r := range rules {
		e.byType[r.Type] = r
	}
}

// Rules returns the registry in catalog order.
func (e *BadgeEngine) Rules() []BadgeRule {
	return e.rules
}

// Rule looks up one badge type.
func (e *BadgeEngine) Rule(t domain.BadgeType) (BadgeRule, bool) {
	r, ok := e.byType[t]
	return r, ok
}

// Snapshot loads everything the predicates read in one concurrent pass.
func (e *BadgeEngine) Snapshot(ctx context.Context, userID string) (History, error) {
	if err := domain.RequireUser(userID); err != nil {
		return History{}, err
	}

	now := e.agg.Now()
	days := e.agg.Days()
	h := History{
		Today:      days.DayKey(now),
		Baseline:   e.defaultBaseline,
		TodayGrace: e.grace,
	}

	var (
		first   time.Time
		profile *domain.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.LifetimeCount, err = e.store.CountEvents(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		first, err = e.store.FirstEventAt(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		h.Days, err = e.agg.WindowedDailyTotals(gctx, userID, days.AddDays(now, -e.lookback))
		return err
	})
	g.Go(func() error {
		var err error
		h.Goal, err = e.store.ActiveGoal(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = e.store.GetProfile(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return History{}, fmt.Errorf("badge snapshot: %w", err)
	}

	if !first.IsZero() {
		h.FirstDay = days.DayKey(first)
	}
	if h.Goal != nil {
		h.GoalDay = days.DayKey(h.Goal.CreatedAt)
	}
	if profile != nil && profile.DailyBaseline > 0 {
		h.Baseline = profile.DailyBaseline
	}
	return h, nil
}

// Evaluate runs every rule and awards the badges whose predicate holds.
// Returns only badges unlocked by this call; already unlocked types are
// skipped without error.
func (e *BadgeEngine) Evaluate(ctx context.Context, userID string) ([]domain.Badge, error) {
	h, err := e.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[domain.BadgeType]bool, len(existing))
	for _, b := range existing {
		unlocked[b.Type] = true
	}

	var awarded []domain.Badge
	for _, rule := range e.rules {
		if unlocked[rule.Type] || rule.Predicate == nil || !rule.Predicate(h) {
			continue
		}

		b := domain.Badge{
			ID:          uuid.New().String(),
			UserID:      userID,
			Type:        rule.Type,
			Description: rule.Description,
			Icon:        rule.Icon,
			UnlockedAt:  e.clock.Now(),
		}
		isNew, err := e.store.AwardBadge(ctx, b)
		if err != nil {
			return awarded, fmt.Errorf("award %s: %w", rule.Type, err)
		}
		if !isNew {
			continue // lost a race with a concurrent evaluation
		}

		awarded = append(awarded, b)
		metrics.BadgesAwarded.WithLabelValues(string(rule.Type)).Inc()
		e.log.Info("badge unlocked", "user", userID, "badge", rule.Type)

		if _, err := e.notifications.NotifyBadge(ctx, b, rule); err != nil {
			e.log.Warn("badge notification failed", "user", userID, "badge", rule.Type, "error", err)
		}
	}
	return awarded, nil
}

// List returns the user's badges, most recently unlocked first.
func (e *BadgeEngine) List(ctx context.Context, userID string) ([]domain.Badge, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	return e.store.ListBadges(ctx, userID)
}

// Catalog returns every badge type with its unlock state.
func (e *BadgeEngine) Catalog(ctx context.Context, userID string) ([]domain.CatalogEntry, error) {
	badges, err := e.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	at := make(map[domain.BadgeType]time.Time, len(badges))
	for _, b := range badges {
		at[b.Type] = b.UnlockedAt
	}

	entries := make([]domain.CatalogEntry, 0, len(e.rules))
	for _, r := range e.rules {
		entry := domain.CatalogEntry{
			Type:        r.Type,
			Name:        r.Name,
			Description: r.Description,
			Icon:        r.Icon,
		}
		if t, ok := at[r.Type]; ok {
			entry.Unlocked = true
			entry.UnlockedAt = &t
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
