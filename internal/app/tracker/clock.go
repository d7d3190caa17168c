package tracker

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar-day key format used everywhere ("2025-07-14").
const DayLayout = "2006-01-02"

// Clock abstracts the current instant so day boundaries are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Tests advance it by assigning T.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

// LoadLocation resolves a configured zone name. Empty and "Local" mean the
// host zone.
func LoadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// ─── Day Bucketing ──────────────────────────────────────────────────────────

// Bucketer maps instants to calendar days in one reference zone.
// Every day boundary in the tracker goes through a Bucketer.
type Bucketer struct {
	loc *time.Location
}

// NewBucketer creates a bucketer for loc. A nil loc means UTC.
func NewBucketer(loc *time.Location) Bucketer {
	if loc == nil {
		loc = time.UTC
	}
	return Bucketer{loc: loc}
}

// Location returns the reference zone.
func (b Bucketer) Location() *time.Location {
	if b.loc == nil {
		return time.UTC
	}
	return b.loc
}

// DayKey returns the calendar day containing t.
func (b Bucketer) DayKey(t time.Time) string {
	return t.In(b.Location()).Format(DayLayout)
}

// StartOfDay returns the first instant of the day containing t.
func (b Bucketer) StartOfDay(t time.Time) time.Time {
	loc := b.Location()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayWindow returns [start, end) of the day containing t. On DST
// transition days the window is 23 or 25 hours long.
func (b Bucketer) DayWindow(t time.Time) (start, end time.Time) {
	loc := b.Location()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// AddDays returns the start of the day n calendar days away from t's day.
func (b Bucketer) AddDays(t time.Time, n int) time.Time {
	loc := b.Location()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, loc)
}

// DaysBetween lists every day key from from's day through to's day,
// inclusive and ascending. Empty when from is after to.
func (b Bucketer) DaysBetween(from, to time.Time) []string {
	first, last := b.DayKey(from), b.DayKey(to)
	if first > last {
		return []string{}
	}
	var keys []string
	for k := first; k <= last; k = ShiftDay(k, 1) {
		keys = append(keys, k)
	}
	return keys
}

// ShiftDay moves a day key by n calendar days. Day keys are plain dates,
// so the arithmetic is zone independent.
func ShiftDay(key string, n int) string {
	t, err := time.Parse(DayLayout, key)
	if err != nil {
		return key
	}
	return t.AddDate(0, 0, n).Format(DayLayout)
}
