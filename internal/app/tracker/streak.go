package tracker

import (
	"context"

	"github.com/quitvipe/quitvipe/internal/domain"
)

// StreakCalculator counts consecutive active days ending today.
type StreakCalculator struct {
	agg      *Aggregator
	lookback int
	grace    bool
}

// NewStreakCalculator creates a calculator that looks back lookback days
// before today. With grace set, a today without puffs yet does not break the
// streak; the walk starts at yesterday instead.
func NewStreakCalculator(agg *Aggregator, lookback int, grace bool) *StreakCalculator {
	return &StreakCalculator{agg: agg, lookback: lookback, grace: grace}
}

// Grace reports whether an empty today is treated as pending.
func (s *StreakCalculator) Grace() bool { return s.grace }

// Window returns the zero-filled daily totals the streak walk reads.
func (s *StreakCalculator) Window(ctx context.Context, userID string) ([]domain.DailyTotal, error) {
	return s.agg.WindowedDailyTotals(ctx, userID, s.agg.Days().AddDays(s.agg.Now(), -s.lookback))
}

// ComputeStreak returns the user's current streak in days.
func (s *StreakCalculator) ComputeStreak(ctx context.Context, userID string) (int, error) {
	days, err := s.Window(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Streak(days, s.agg.TodayKey(), s.grace), nil
}

// Streak walks backward from today over per-day totals and counts days that
// are each exactly one calendar day before the previous one and have a
// positive total. A day missing from days counts as zero. When today is zero
// the result is 0 unless grace is set, in which case counting starts at
// yesterday.
func Streak(days []domain.DailyTotal, today string, grace bool) int {
	totals := make(map[string]int64, len(days))
	for _, d := range days {
		totals[d.Day] += d.Total
	}

	cursor := today
	if totals[cursor] <= 0 {
		if !grace {
			return 0
		}
		cursor = ShiftDay(cursor, -1)
	}

	n := 0
	for totals[cursor] > 0 {
		n++
		cursor = ShiftDay(cursor, -1)
	}
	return n
}

// LongestRun returns the longest run of consecutive active days in days.
func LongestRun(days []domain.DailyTotal) int {
	active := make(map[string]bool, len(days))
	for _, d := range days {
		if d.Total > 0 {
			active[d.Day] = true
		}
	}

	longest := 0
	for day := range active {
		if active[ShiftDay(day, -1)] {
			continue // not the start of a run
		}
		n := 0
		for k := day; active[k]; k = ShiftDay(k, 1) {
			n++
		}
		if n > longest {
			longest = n
		}
	}
	return longest
}
