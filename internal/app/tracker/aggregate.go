package tracker

import (
	"context"
	"math"
	"time"

	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/metrics"
)

// Aggregator derives per-day and windowed totals from the event log.
// All methods are read-only and safe for concurrent use.
type Aggregator struct {
	events domain.EventStore
	days   Bucketer
	clock  Clock
}

// NewAggregator creates an aggregator over the event store.
func NewAggregator(events domain.EventStore, days Bucketer, clock Clock) *Aggregator {
	return &Aggregator{events: events, days: days, clock: clock}
}

// Days returns the bucketer used for every day boundary.
func (a *Aggregator) Days() Bucketer { return a.days }

// Now returns the aggregator's current instant.
func (a *Aggregator) Now() time.Time { return a.clock.Now() }

// TodayKey returns the current day key.
func (a *Aggregator) TodayKey() string { return a.days.DayKey(a.clock.Now()) }

// TodaySummary sums the events whose occurred_at falls in today's window.
func (a *Aggregator) TodaySummary(ctx context.Context, userID string) (domain.TodaySummary, error) {
	if err := domain.RequireUser(userID); err != nil {
		return domain.TodaySummary{}, err
	}
	defer observe("today", time.Now())

	events, err := a.todayEvents(ctx, userID)
	if err != nil {
		return domain.TodaySummary{}, err
	}
	return summarize(events), nil
}

func (a *Aggregator) todayEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	start, end := a.days.DayWindow(a.clock.Now())
	return a.events.FindEventsInRange(ctx, userID, start, end)
}

// summarize expects events newest created first, as the store returns them.
func summarize(events []domain.Event) domain.TodaySummary {
	var s domain.TodaySummary
	for _, e := range events {
		s.TotalCount += int64(e.Count)
	}
	s.SessionCount = len(events)
	if len(events) > 0 {
		latest := events[0]
		s.Latest = &latest
	}
	return s
}

// WindowedDailyTotals returns one entry per calendar day from windowStart's
// day through today, ascending, with days lacking events reported as zero.
// A windowStart after today yields an empty slice.
func (a *Aggregator) WindowedDailyTotals(ctx context.Context, userID string, windowStart time.Time) ([]domain.DailyTotal, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	defer observe("daily_totals", time.Now())

	now := a.clock.Now()
	keys := a.days.DaysBetween(windowStart, now)
	if len(keys) == 0 {
		return []domain.DailyTotal{}, nil
	}

	sums, err := a.events.SumEventsByDay(ctx, userID, a.days.StartOfDay(windowStart))
	if err != nil {
		return nil, err
	}

	totals := make([]domain.DailyTotal, len(keys))
	for i, k := range keys {
		totals[i] = domain.DailyTotal{Day: k, Total: sums[k]}
	}
	return totals, nil
}

// RollupTotal sums every count with occurred_at >= windowStart.
func (a *Aggregator) RollupTotal(ctx context.Context, userID string, windowStart time.Time) (int64, error) {
	if err := domain.RequireUser(userID); err != nil {
		return 0, err
	}
	defer observe("rollup", time.Now())
	return a.events.SumEvents(ctx, userID, windowStart)
}

// WeekStart returns the first instant of the trailing 7-day window.
func (a *Aggregator) WeekStart() time.Time {
	return a.days.AddDays(a.clock.Now(), -6)
}

// MonthStart returns the first instant of the trailing 30-day window.
func (a *Aggregator) MonthStart() time.Time {
	return a.days.AddDays(a.clock.Now(), -29)
}

// WeeklyAverage divides the trailing 7-day total by the number of those days
// with any puffs, rounded to two decimals. Zero when no day is active.
func (a *Aggregator) WeeklyAverage(ctx context.Context, userID string) (float64, error) {
	week, err := a.WindowedDailyTotals(ctx, userID, a.WeekStart())
	if err != nil {
		return 0, err
	}
	_, avg := weekSummary(week)
	return avg, nil
}

func weekSummary(days []domain.DailyTotal) (total int64, avg float64) {
	active := 0
	for _, d := range days {
		total += d.Total
		if d.Total > 0 {
			active++
		}
	}
	if active == 0 {
		return total, 0
	}
	return total, round(float64(total)/float64(active), 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func observe(op string, start time.Time) {
	metrics.AggregationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
