package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quitvipe/quitvipe/internal/app/tracker"
	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/cache"
	"github.com/quitvipe/quitvipe/internal/infra/sqlite"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// now is a Monday afternoon; every fixture starts here.
var now = time.Date(2025, 7, 14, 15, 0, 0, 0, time.UTC)

type fixture struct {
	db    *sqlite.DB
	clock *tracker.FixedClock
	cache *cache.Memory
	tr    *tracker.Tracker
}

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newFixture(t *testing.T, tweak ...func(*tracker.Options)) *fixture {
	t.Helper()
	opts := tracker.DefaultOptions()
	for _, fn := range tweak {
		fn(&opts)
	}
	db := testDB(t)
	f := &fixture{
		db:    db,
		clock: &tracker.FixedClock{T: now},
		cache: cache.NewMemory(),
	}
	f.tr = tracker.New(db, f.cache, f.clock, logger.Nop(), opts)
	return f
}

// seed inserts an event daysAgo days before the fixture clock, bypassing
// validation and badge evaluation.
func (f *fixture) seed(t *testing.T, user string, daysAgo, count int) domain.Event {
	t.Helper()
	at := f.clock.T.AddDate(0, 0, -daysAgo)
	e := domain.Event{
		ID:         uuid.New().String(),
		UserID:     user,
		Count:      count,
		Trigger:    domain.TriggerOther,
		OccurredAt: at,
		CreatedAt:  at,
		DayKey:     f.tr.Aggregates.Days().DayKey(at),
	}
	if err := f.db.InsertEvent(context.Background(), e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func (f *fixture) record(t *testing.T, user string, count int) tracker.RecordResult {
	t.Helper()
	res, err := f.tr.Puffs.Record(context.Background(), user, tracker.PuffInput{Count: count})
	if err != nil {
		t.Fatalf("record %d: %v", count, err)
	}
	return res
}

func hasBadge(badges []domain.Badge, typ domain.BadgeType) bool {
	for _, b := range badges {
		if b.Type == typ {
			return true
		}
	}
	return false
}

func TestNew_NilCollaborators(t *testing.T) {
	tr := tracker.New(testDB(t), nil, nil, nil, tracker.Options{})
	if _, err := tr.Stats.RollingStats(context.Background(), "u1"); err != nil {
		t.Fatalf("RollingStats() with defaults: %v", err)
	}
}

// Every entry point rejects a missing user before touching the store.
func TestUnauthorized_EmptyUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := map[string]func() error{
		"record": func() error {
			_, err := f.tr.Puffs.Record(ctx, "", tracker.PuffInput{Count: 1})
			return err
		},
		"undo":     func() error { _, err := f.tr.Puffs.Undo(ctx, ""); return err },
		"today":    func() error { _, err := f.tr.Puffs.Today(ctx, ""); return err },
		"recent":   func() error { _, err := f.tr.Puffs.Recent(ctx, "", 5); return err },
		"stats":    func() error { _, err := f.tr.Stats.RollingStats(ctx, ""); return err },
		"streak":   func() error { _, err := f.tr.Streaks.ComputeStreak(ctx, ""); return err },
		"set goal": func() error { _, err := f.tr.Goals.SetGoal(ctx, "", "daily", 5); return err },
		"goal":     func() error { _, err := f.tr.Goals.Progress(ctx, ""); return err },
		"history":  func() error { _, err := f.tr.Goals.History(ctx, ""); return err },
		"badges":   func() error { _, err := f.tr.Badges.List(ctx, ""); return err },
		"evaluate": func() error { _, err := f.tr.Badges.Evaluate(ctx, ""); return err },
		"catalog":  func() error { _, err := f.tr.Badges.Catalog(ctx, ""); return err },
		"notifs":   func() error { _, err := f.tr.Notifications.Pending(ctx, "", 5); return err },
		"shown":    func() error { return f.tr.Notifications.MarkShown(ctx, "", 1) },
		"profile":  func() error { _, err := f.tr.Profiles.Get(ctx, ""); return err },
		"delete":   func() error { return f.tr.Profiles.DeleteAccount(ctx, "") },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}
}
