// Package domain holds the Quit Vipe tracking types.
// Puff events are the append-only log; daily totals, streaks, goal progress
// and badges are all derived from it.
package domain

import (
	"fmt"
	"time"
)

// ─── Puff Events ────────────────────────────────────────────────────────────

// Trigger is the reason a user gives for a puff.
type Trigger string

const (
	TriggerStress  Trigger = "stress"
	TriggerBoredom Trigger = "boredom"
	TriggerSocial  Trigger = "social"
	TriggerHabit   Trigger = "habit"
	TriggerOther   Trigger = "other"
)

// Triggers lists every accepted trigger in display order.
func Triggers() []Trigger {
	return []Trigger{TriggerStress, TriggerBoredom, TriggerSocial, TriggerHabit, TriggerOther}
}

// ParseTrigger validates a trigger name. Empty means other.
func ParseTrigger(s string) (Trigger, error) {
	if s == "" {
		return TriggerOther, nil
	}
	for _, t := range Triggers() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, s)
}

// Event is one logged puff entry. Immutable once stored; only undo removes it.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Count      int       `json:"count"`
	Trigger    Trigger   `json:"trigger"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
	DayKey     string    `json:"day"` // occurred_at bucketed in the reference zone
}

// ─── Aggregates ─────────────────────────────────────────────────────────────

// DailyTotal is the derived sum of puff counts for one calendar day.
type DailyTotal struct {
	Day   string `json:"date"`
	Total int64  `json:"puffs"`
}

// TodaySummary summarizes the current day's window.
type TodaySummary struct {
	TotalCount   int64  `json:"total_count"`
	SessionCount int    `json:"puff_count"`
	Latest       *Event `json:"latest"`
}

// RollingStats is the dashboard view over the trailing week and month.
type RollingStats struct {
	WeeklyStats   []DailyTotal `json:"weekly_stats"`
	WeeklyTotal   int64        `json:"weekly_total"`
	WeeklyAverage float64      `json:"weekly_average"`
	MonthlyTotal  int64        `json:"monthly_total"`
	Streak        int          `json:"streak"`
	LastUpdated   time.Time    `json:"last_updated"`
}

// ─── Goals ──────────────────────────────────────────────────────────────────

// GoalPeriod is the span a goal target applies to.
type GoalPeriod string

const (
	GoalDaily   GoalPeriod = "daily"
	GoalWeekly  GoalPeriod = "weekly"
	GoalMonthly GoalPeriod = "monthly"
)

// ParseGoalPeriod validates a goal period. Empty means daily.
func ParseGoalPeriod(s string) (GoalPeriod, error) {
	switch GoalPeriod(s) {
	case "":
		return GoalDaily, nil
	case GoalDaily, GoalWeekly, GoalMonthly:
		return GoalPeriod(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGoalPeriod, s)
}

// Days returns how many days the period spans.
func (p GoalPeriod) Days() int {
	switch p {
	case GoalWeekly:
		return 7
	case GoalMonthly:
		return 30
	default:
		return 1
	}
}

// Goal is a user's puff cap. At most one goal per user is active.
type Goal struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Period    GoalPeriod `json:"type"`
	Target    int        `json:"target_puffs"`
	Active    bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// DailyCap converts the target into a per-day allowance.
func (g Goal) DailyCap() float64 {
	return float64(g.Target) / float64(g.Period.Days())
}

// GoalProgress is the evaluator output for today's total against a goal.
type GoalProgress struct {
	Goal            Goal    `json:"goal"`
	TodayTotal      int64   `json:"today_total"`
	Remaining       int64   `json:"remaining"`
	ProgressPercent float64 `json:"progress_percent"`
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// BadgeType enumerates every achievement a user can unlock.
type BadgeType string

const (
	BadgeFirstPuff           BadgeType = "first_puff"
	BadgeThreeDayStreak      BadgeType = "three_day_streak"
	BadgeGoalHitThreeDays    BadgeType = "goal_hit_three_days"
	BadgeHundredPuffsAvoided BadgeType = "hundred_puffs_avoided"
	BadgeWeekStreak          BadgeType = "week_streak"
	BadgeMonthStreak         BadgeType = "month_streak"
	BadgeZeroPuffsDay        BadgeType = "zero_puffs_day"
	BadgeGoalMaster          BadgeType = "goal_master"
)

// BadgeTypes lists the enumeration in display order.
func BadgeTypes() []BadgeType {
	return []BadgeType{
		BadgeFirstPuff, BadgeThreeDayStreak, BadgeGoalHitThreeDays, BadgeHundredPuffsAvoided,
		BadgeWeekStreak, BadgeMonthStreak, BadgeZeroPuffsDay, BadgeGoalMaster,
	}
}

// Badge is an unlocked achievement. (UserID, Type) is unique.
type Badge struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        BadgeType `json:"type"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// CatalogEntry is one badge type with its display metadata and unlock state.
type CatalogEntry struct {
	Type        BadgeType  `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// ─── Profile ────────────────────────────────────────────────────────────────

// Profile carries the per-user settings the tracker reads.
type Profile struct {
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	QuitDate      *time.Time `json:"quit_date"`
	DailyBaseline int        `json:"daily_baseline"` // pre-quit puffs per day
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProfileUpdate is a partial profile change. Nil fields are left as is.
type ProfileUpdate struct {
	Name          *string
	QuitDate      *time.Time
	ClearQuitDate bool
	DailyBaseline *int
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.QuitDate == nil && !u.ClearQuitDate && u.DailyBaseline == nil
}

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const NotifyBadge NotificationType = "badge"

// Notification is a user-facing message produced by the tracker.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}
