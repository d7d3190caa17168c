package domain

import (
	"context"
	"time"
)

// ─── Store Interfaces ───────────────────────────────────────────────────────
// infra/sqlite implements all of them; the tracker only depends on these.

// EventStore persists puff events and answers the aggregate queries.
type EventStore interface {
	InsertEvent(ctx context.Context, e Event) error

	// DeleteMostRecentEvent atomically removes the most recently created event
	// whose occurred_at lies in [start, end). Returns nil when there is none.
	DeleteMostRecentEvent(ctx context.Context, userID string, start, end time.Time) (*Event, error)

	// FindEventsInRange returns events in [start, end), newest created first.
	FindEventsInRange(ctx context.Context, userID string, start, end time.Time) ([]Event, error)

	// SumEventsByDay groups events with occurred_at >= start by day key.
	SumEventsByDay(ctx context.Context, userID string, start time.Time) (map[string]int64, error)

	// SumEvents totals counts with occurred_at >= start.
	SumEvents(ctx context.Context, userID string, start time.Time) (int64, error)

	CountEvents(ctx context.Context, userID string) (int64, error)

	// FirstEventAt returns the earliest occurred_at, or the zero time.
	FirstEventAt(ctx context.Context, userID string) (time.Time, error)
}

// GoalStore keeps goal history with a single active goal per user.
type GoalStore interface {
	// ReplaceActiveGoal deactivates every active goal of g.UserID and inserts g
	// as the new active goal in one transaction.
	ReplaceActiveGoal(ctx context.Context, g Goal) error
	ActiveGoal(ctx context.Context, userID string) (*Goal, error)
	ListGoals(ctx context.Context, userID string) ([]Goal, error)
}

// BadgeStore records unlocked badges.
type BadgeStore interface {
	// AwardBadge inserts b unless (UserID, Type) already exists.
	// Returns true only when a new row was written.
	AwardBadge(ctx context.Context, b Badge) (bool, error)
	ListBadges(ctx context.Context, userID string) ([]Badge, error)
}

// ProfileStore keeps per-user settings.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p Profile) error
	DeleteUserData(ctx context.Context, userID string) error
}

// NotificationStore keeps the per-user notification log.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n Notification) (int64, error)
	ListPendingNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationShown(ctx context.Context, userID string, id int64) (bool, error)
}
