package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quitvipe/quitvipe/internal/app/tracker"
	"github.com/quitvipe/quitvipe/internal/domain"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name          string
		target        int
		total         int64
		wantRemaining int64
		wantPercent   float64
	}{
		{"half way", 10, 5, 5, 50},
		{"none yet", 10, 0, 10, 0},
		{"exactly at goal", 10, 10, 0, 100},
		{"over goal", 10, 25, 0, 100},
		{"zero target", 0, 0, 0, 100},
		{"zero target with puffs", 0, 3, 0, 100},
		{"one decimal", 7, 3, 4, 42.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tracker.Progress(domain.Goal{Target: tt.target}, tt.total)
			if p.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", p.Remaining, tt.wantRemaining)
			}
			if p.ProgressPercent != tt.wantPercent {
				t.Errorf("ProgressPercent = %v, want %v", p.ProgressPercent, tt.wantPercent)
			}
			if p.TodayTotal != tt.total {
				t.Errorf("TodayTotal = %d, want %d", p.TodayTotal, tt.total)
			}
		})
	}
}

func TestGoalService_ProgressExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.record(t, "u1", 3)
	f.record(t, "u1", 2)
	if _, err := f.tr.Goals.SetGoal(ctx, "u1", "daily", 10); err != nil {
		t.Fatalf("SetGoal() error: %v", err)
	}

	p, err := f.tr.Goals.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("Progress() error: %v", err)
	}
	if p.Remaining != 5 || p.ProgressPercent != 50.0 {
		t.Errorf("progress = %+v, want remaining 5, percent 50", p)
	}
}

func TestGoalService_NoGoal(t *testing.T) {
	f := newFixture(t)
	_, err := f.tr.Goals.Progress(context.Background(), "u1")
	if !errors.Is(err, domain.ErrGoalNotSet) || !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrGoalNotSet", err)
	}
}

func TestGoalService_SetGoalReplaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.tr.Goals.SetGoal(ctx, "u1", "", 20)
	if err != nil {
		t.Fatalf("SetGoal() error: %v", err)
	}
	if first.Period != domain.GoalDaily {
		t.Errorf("default period = %s, want daily", first.Period)
	}

	f.clock.T = now.Add(time.Minute)
	second, err := f.tr.Goals.SetGoal(ctx, "u1", "weekly", 70)
	if err != nil {
		t.Fatalf("SetGoal() error: %v", err)
	}

	active, _ := f.tr.Goals.ActiveGoal(ctx, "u1")
	if active.ID != second.ID {
		t.Errorf("active = %s, want %s", active.ID, second.ID)
	}

	history, _ := f.tr.Goals.History(ctx, "u1")
	activeCount := 0
	for _, g := range history {
		if g.Active {
			activeCount++
		}
	}
	if len(history) != 2 || activeCount != 1 {
		t.Errorf("history = %d goals with %d active, want 2 with 1", len(history), activeCount)
	}
	if history[1].ID != first.ID || history[1].Active {
		t.Errorf("previous goal = %+v, want inactive first goal", history[1])
	}
}

func TestGoalService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		period string
		target int
	}{
		{"negative target", "daily", -1},
		{"unknown period", "yearly", 5},
	}
	for _, tt := range tests {
		_, err := f.tr.Goals.SetGoal(ctx, "u1", tt.period, tt.target)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tt.name, err)
		}
	}

	if history, _ := f.tr.Goals.History(ctx, "u1"); len(history) != 0 {
		t.Errorf("invalid goals persisted: %d", len(history))
	}
}
