package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quitvipe/quitvipe/internal/domain"
)

// ─── Puff Events ────────────────────────────────────────────────────────────

const eventColumns = `id, user_id, count, trigger_type, occurred_at, created_at, day_key`

// InsertEvent appends a puff event.
func (d *DB) InsertEvent(ctx context.Context, e domain.Event) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Count, string(e.Trigger),
		toUnix(e.OccurredAt), toUnix(e.CreatedAt), e.DayKey,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// DeleteMostRecentEvent removes the newest-created event whose occurred_at is
// in [start, end). Select and delete share one transaction so two concurrent
// undos never remove the same row twice.
func (d *DB) DeleteMostRecentEvent(ctx context.Context, userID string, start, end time.Time) (*domain.Event, error) {
	var deleted *domain.Event
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+eventColumns+` FROM events
			 WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?
			 ORDER BY created_at DESC, seq DESC LIMIT 1`,
			userID, toUnix(start), toUnix(end),
		)
		e, err := scanEvent(row)
		if err != nil || e == nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, e.ID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		deleted = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// FindEventsInRange returns a user's events in [start, end), newest created first.
func (d *DB) FindEventsInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Event, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?
		 ORDER BY created_at DESC, seq DESC`,
		userID, toUnix(start), toUnix(end),
	)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// SumEventsByDay groups a user's events since start by their stored day key.
func (d *DB) SumEventsByDay(ctx context.Context, userID string, start time.Time) (map[string]int64, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT day_key, SUM(count) FROM events
		 WHERE user_id = ? AND occurred_at >= ?
		 GROUP BY day_key`,
		userID, toUnix(start),
	)
	if err != nil {
		return nil, fmt.Errorf("sum by day: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var day string
		var total int64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, err
		}
		totals[day] = total
	}
	return totals, rows.Err()
}

// SumEvents totals a user's counts with occurred_at >= start.
func (d *DB) SumEvents(ctx context.Context, userID string, start time.Time) (int64, error) {
	var total int64
	err := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM events WHERE user_id = ? AND occurred_at >= ?`,
		userID, toUnix(start),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum events: %w", err)
	}
	return total, nil
}

// CountEvents returns how many events a user has ever logged.
func (d *DB) CountEvents(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// FirstEventAt returns the earliest occurred_at for a user, or the zero time.
func (d *DB) FirstEventAt(ctx context.Context, userID string) (time.Time, error) {
	var first sql.NullInt64
	err := d.db.QueryRowContext(ctx,
		`SELECT MIN(occurred_at) FROM events WHERE user_id = ?`, userID,
	).Scan(&first)
	if err != nil {
		return time.Time{}, fmt.Errorf("first event: %w", err)
	}
	if !first.Valid {
		return time.Time{}, nil
	}
	return fromUnix(first.Int64), nil
}

func scanEvent(s scanner) (*domain.Event, error) {
	var e domain.Event
	var trigger string
	var occurredAt, createdAt int64

	err := s.Scan(&e.ID, &e.UserID, &e.Count, &trigger, &occurredAt, &createdAt, &e.DayKey)
	if isNoRows(err) {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}
	e.Trigger = domain.Trigger(trigger)
	e.OccurredAt = fromUnix(occurredAt)
	e.CreatedAt = fromUnix(createdAt)
	return &e, nil
}
