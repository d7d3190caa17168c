package tracker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quitvipe/quitvipe/internal/app/tracker"
	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/cache"
	"github.com/quitvipe/quitvipe/internal/infra/scheduler"
	"github.com/quitvipe/quitvipe/internal/infra/sqlite"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// ─── Registry ───────────────────────────────────────────────────────────────

func TestDefaultBadgeRules_CoverEnumeration(t *testing.T) {
	rules := tracker.DefaultBadgeRules()
	if len(rules) != len(domain.BadgeTypes()) {
		t.Fatalf("rules = %d, badge types = %d", len(rules), len(domain.BadgeTypes()))
	}
	for i, typ := range domain.BadgeTypes() {
		r := rules[i]
		if r.Type != typ {
			t.Errorf("rule %d = %s, want %s", i, r.Type, typ)
		}
		if r.Name == "" || r.Description == "" || r.Icon == "" {
			t.Errorf("rule %s missing display metadata", r.Type)
		}
	}
}

func TestBadgeRule_NilPredicateNeverFires(t *testing.T) {
	f := newFixture(t)
	r, ok := f.tr.Badges.Rule(domain.BadgeFirstPuff)
	if !ok || r.Predicate == nil {
		t.Fatal("first_puff rule missing")
	}
	if _, ok := f.tr.Badges.Rule("reserved_future_badge"); ok {
		t.Error("unknown badge type should have no rule")
	}
}

// ─── History Predicates ─────────────────────────────────────────────────────

// history builds a snapshot ending 2025-07-14 from totals listed oldest first.
func history(totals ...int64) tracker.History {
	h := tracker.History{Today: "2025-07-14", Baseline: 200, TodayGrace: true}
	start := tracker.ShiftDay(h.Today, -(len(totals) - 1))
	for i, n := range totals {
		h.Days = append(h.Days, domain.DailyTotal{Day: tracker.ShiftDay(start, i), Total: n})
		h.LifetimeCount += n
	}
	if len(totals) > 0 {
		h.FirstDay = start
	}
	return h
}

func TestHistory_GoalHitRun(t *testing.T) {
	goal := &domain.Goal{Period: domain.GoalDaily, Target: 10}

	h := history(5, 8, 10, 3)
	h.Goal = goal
	h.GoalDay = h.Days[0].Day
	if got := h.GoalHitRun(); got != 3 {
		t.Errorf("GoalHitRun = %d, want 3 (today excluded)", got)
	}

	over := history(5, 11, 10, 3)
	over.Goal = goal
	over.GoalDay = over.Days[0].Day
	if got := over.GoalHitRun(); got != 1 {
		t.Errorf("GoalHitRun with overshoot = %d, want 1", got)
	}

	late := history(5, 8, 10, 3)
	late.Goal = goal
	late.GoalDay = late.Days[2].Day // set yesterday
	if got := late.GoalHitRun(); got != 1 {
		t.Errorf("GoalHitRun before goal set = %d, want 1", got)
	}

	weekly := history(9, 10, 0)
	weekly.Goal = &domain.Goal{Period: domain.GoalWeekly, Target: 70}
	weekly.GoalDay = weekly.Days[0].Day
	if got := weekly.GoalHitRun(); got != 2 {
		t.Errorf("weekly GoalHitRun = %d, want 2 (cap 10/day)", got)
	}

	if got := history(1, 1, 1).GoalHitRun(); got != 0 {
		t.Errorf("GoalHitRun without goal = %d, want 0", got)
	}
}

func TestHistory_PuffsAvoided(t *testing.T) {
	h := history(150, 180, 250, 0)
	// 50 + 20 + 0; today is excluded.
	if got := h.PuffsAvoided(); got != 70 {
		t.Errorf("PuffsAvoided = %d, want 70", got)
	}

	h.Baseline = 0
	if got := h.PuffsAvoided(); got != 0 {
		t.Errorf("PuffsAvoided with zero baseline = %d, want 0", got)
	}
}

func TestHistory_HasZeroDay(t *testing.T) {
	if history(3, 0, 2).HasZeroDay() != true {
		t.Error("expected zero day at D-1")
	}
	if history(3, 2, 0).HasZeroDay() {
		t.Error("an empty today is not a completed zero day")
	}

	// Days before the first event are not tracked.
	h := history(0, 0, 4, 2)
	h.FirstDay = h.Days[2].Day
	if h.HasZeroDay() {
		t.Error("days before the first event must not count")
	}
}

// ─── Evaluate ───────────────────────────────────────────────────────────────

func TestEvaluate_FirstPuffOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.record(t, "u1", 1)
	if !hasBadge(res.Badges, domain.BadgeFirstPuff) {
		t.Fatalf("first record badges = %+v, want first_puff", res.Badges)
	}

	f.clock.T = now.Add(time.Hour)
	res = f.record(t, "u1", 2)
	if hasBadge(res.Badges, domain.BadgeFirstPuff) {
		t.Error("first_puff awarded twice")
	}

	badges, _ := f.tr.Badges.List(ctx, "u1")
	count := 0
	for _, b := range badges {
		if b.Type == domain.BadgeFirstPuff {
			count++
			if !b.UnlockedAt.Equal(now) {
				t.Errorf("UnlockedAt = %v, want %v", b.UnlockedAt, now)
			}
		}
	}
	if count != 1 {
		t.Errorf("first_puff count = %d, want 1", count)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 0, 1)

	first, err := f.tr.Badges.Evaluate(ctx, "u1")
	if err != nil || len(first) == 0 {
		t.Fatalf("Evaluate() = %v, %v", first, err)
	}
	again, err := f.tr.Badges.Evaluate(ctx, "u1")
	if err != nil {
		t.Fatalf("second Evaluate() error: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Evaluate() awarded %v", again)
	}
}

func TestEvaluate_ConcurrentNoDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 0, 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			awarded, err := f.tr.Badges.Evaluate(ctx, "u1")
			if err != nil {
				t.Errorf("Evaluate() error: %v", err)
				return
			}
			mu.Lock()
			total += len(awarded)
			mu.Unlock()
		}()
	}
	wg.Wait()

	badges, _ := f.tr.Badges.List(ctx, "u1")
	if total != len(badges) {
		t.Errorf("reported %d awards, stored %d", total, len(badges))
	}
	seen := make(map[domain.BadgeType]bool)
	for _, b := range badges {
		if seen[b.Type] {
			t.Errorf("duplicate badge %s", b.Type)
		}
		seen[b.Type] = true
	}
}

func TestEvaluate_ThreeDayStreak(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", 2, 1)
	f.seed(t, "u1", 1, 1)

	res := f.record(t, "u1", 1)
	if !hasBadge(res.Badges, domain.BadgeThreeDayStreak) {
		t.Errorf("badges = %+v, want three_day_streak", res.Badges)
	}
	if hasBadge(res.Badges, domain.BadgeWeekStreak) {
		t.Error("week_streak must not fire at 3 days")
	}
}

func TestEvaluate_ThreeActiveDaysWithGap(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", 3, 1)
	f.seed(t, "u1", 1, 1)

	res := f.record(t, "u1", 1)
	if hasBadge(res.Badges, domain.BadgeThreeDayStreak) {
		t.Error("three distinct but non-contiguous days must not count as a streak")
	}
}

func TestEvaluate_WeekAndMonthStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for ago := 1; ago <= 30; ago++ {
		f.seed(t, "u1", ago, 1)
	}

	// Today is empty and pending, so the 30 prior days form the streak.
	awarded, err := f.tr.Badges.Evaluate(ctx, "u1")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	for _, typ := range []domain.BadgeType{domain.BadgeThreeDayStreak, domain.BadgeWeekStreak, domain.BadgeMonthStreak} {
		if !hasBadge(awarded, typ) {
			t.Errorf("missing %s in %+v", typ, awarded)
		}
	}
}

func TestEvaluate_GoalBadges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.T = now.AddDate(0, 0, -15)
	if _, err := f.tr.Goals.SetGoal(ctx, "u1", "daily", 5); err != nil {
		t.Fatalf("SetGoal() error: %v", err)
	}
	f.clock.T = now
	for ago := 1; ago <= 14; ago++ {
		f.seed(t, "u1", ago, 3)
	}

	awarded, err := f.tr.Badges.Evaluate(ctx, "u1")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !hasBadge(awarded, domain.BadgeGoalHitThreeDays) {
		t.Error("missing goal_hit_three_days")
	}
	if !hasBadge(awarded, domain.BadgeGoalMaster) {
		t.Error("missing goal_master")
	}
}

func TestEvaluate_ZeroDayAndAvoided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.tr.Profiles.Update(ctx, "u1", domain.ProfileUpdate{DailyBaseline: intPtr(60)}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	f.seed(t, "u1", 3, 10) // avoided 50
	// D-2 empty: zero day, avoided 60
	f.seed(t, "u1", 1, 70) // avoided 0

	awarded, err := f.tr.Badges.Evaluate(ctx, "u1")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !hasBadge(awarded, domain.BadgeZeroPuffsDay) {
		t.Error("missing zero_puffs_day")
	}
	if !hasBadge(awarded, domain.BadgeHundredPuffsAvoided) {
		t.Error("missing hundred_puffs_avoided (50 + 60 >= 100)")
	}
}

func TestEvaluate_NoEventsAwardsNothing(t *testing.T) {
	f := newFixture(t)
	awarded, err := f.tr.Badges.Evaluate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(awarded) != 0 {
		t.Errorf("awarded = %+v, want none", awarded)
	}
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	f.record(t, "u1", 1)

	entries, err := f.tr.Badges.Catalog(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	if len(entries) != len(domain.BadgeTypes()) {
		t.Fatalf("entries = %d", len(entries))
	}
	for _, e := range entries {
		want := e.Type == domain.BadgeFirstPuff
		if e.Unlocked != want {
			t.Errorf("%s unlocked = %v, want %v", e.Type, e.Unlocked, want)
		}
		if e.Unlocked && e.UnlockedAt == nil {
			t.Errorf("%s missing UnlockedAt", e.Type)
		}
	}
}

// ─── Notifications ──────────────────────────────────────────────────────────

func TestNotifications_OnUnlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.record(t, "u1", 1)

	pending, err := f.tr.Notifications.Pending(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("Pending() error: %v", err)
	}
	if len(pending) != 1 || pending[0].Type != domain.NotifyBadge {
		t.Fatalf("pending = %+v, want one badge notification", pending)
	}

	err = f.tr.Notifications.MarkShown(ctx, "u2", pending[0].ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other user MarkShown err = %v, want NotFound", err)
	}
	if err := f.tr.Notifications.MarkShown(ctx, "u1", pending[0].ID); err != nil {
		t.Fatalf("MarkShown() error: %v", err)
	}
	if pending, _ = f.tr.Notifications.Pending(ctx, "u1", 0); len(pending) != 0 {
		t.Errorf("pending after shown = %d", len(pending))
	}
}

// ─── Best Effort ────────────────────────────────────────────────────────────

// brokenBadges fails every award while broken is set, so Record's
// best-effort path and the retry queue are exercised.
type brokenBadges struct {
	*sqlite.DB
	broken *atomic.Bool
}

func (b brokenBadges) AwardBadge(ctx context.Context, badge domain.Badge) (bool, error) {
	if b.broken.Load() {
		return false, errors.New("disk full")
	}
	return b.DB.AwardBadge(ctx, badge)
}

func newBrokenTracker(t *testing.T) (*tracker.Tracker, *sqlite.DB, *atomic.Bool) {
	t.Helper()
	db := testDB(t)
	broken := &atomic.Bool{}
	broken.Store(true)
	opts := tracker.DefaultOptions()
	opts.BadgeRetry = scheduler.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	tr := tracker.New(brokenBadges{DB: db, broken: broken}, cache.NewMemory(), &tracker.FixedClock{T: now}, logger.Nop(), opts)
	return tr, db, broken
}

func TestRecord_BadgeFailureDoesNotAbort(t *testing.T) {
	tr, db, _ := newBrokenTracker(t)
	ctx := context.Background()

	res, err := tr.Puffs.Record(ctx, "u1", tracker.PuffInput{Count: 2})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if res.Event.ID == "" || len(res.Badges) != 0 {
		t.Errorf("result = %+v, want stored event and no badges", res)
	}
	if n, _ := db.CountEvents(ctx, "u1"); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
	if tr.BadgeRetries.Len() != 1 {
		t.Errorf("failed evaluation should be queued for retry, pending = %d", tr.BadgeRetries.Len())
	}

	// Once the store recovers, evaluation catches up on the missed badge.
	fixed := tracker.New(db, cache.NewMemory(), &tracker.FixedClock{T: now}, logger.Nop(), tracker.DefaultOptions())
	awarded, err := fixed.Badges.Evaluate(ctx, "u1")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !hasBadge(awarded, domain.BadgeFirstPuff) {
		t.Errorf("awarded = %+v, want first_puff", awarded)
	}
}

func TestBadgeRetries_CatchUp(t *testing.T) {
	tr, db, broken := newBrokenTracker(t)
	ctx := context.Background()

	if _, err := tr.Puffs.Record(ctx, "u1", tracker.PuffInput{Count: 1}); err != nil {
		t.Fatal(err)
	}

	// Still failing: rescheduled, not lost.
	time.Sleep(5 * time.Millisecond)
	tr.RetryBadgesOnce(ctx)
	if tr.BadgeRetries.Len() != 1 {
		t.Fatalf("pending after failed retry = %d, want 1", tr.BadgeRetries.Len())
	}

	broken.Store(false)
	time.Sleep(5 * time.Millisecond)
	tr.RetryBadgesOnce(ctx)
	if tr.BadgeRetries.Len() != 0 {
		t.Errorf("pending after successful retry = %d", tr.BadgeRetries.Len())
	}
	badges, err := db.ListBadges(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !hasBadge(badges, domain.BadgeFirstPuff) {
		t.Errorf("badges = %+v, want first_puff after retry", badges)
	}
}

func TestBadgeRetries_ForgottenAfterSuccess(t *testing.T) {
	tr, _, broken := newBrokenTracker(t)
	ctx := context.Background()

	tr.Puffs.Record(ctx, "u1", tracker.PuffInput{Count: 1})
	broken.Store(false)
	tr.Puffs.Record(ctx, "u1", tracker.PuffInput{Count: 1})

	if tr.BadgeRetries.Len() != 0 {
		t.Errorf("a successful evaluation should clear the pending retry, pending = %d", tr.BadgeRetries.Len())
	}
}

func intPtr(n int) *int { return &n }
