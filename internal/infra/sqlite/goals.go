package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quitvipe/quitvipe/internal/domain"
)

// ─── Goals ──────────────────────────────────────────────────────────────────

const goalColumns = `id, user_id, period, target, active, created_at`

// ReplaceActiveGoal deactivates the user's active goals and inserts g as the
// new active one. Old goals are kept as history.
func (d *DB) ReplaceActiveGoal(ctx context.Context, g domain.Goal) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET active = 0 WHERE user_id = ? AND active = 1`, g.UserID,
		); err != nil {
			return fmt.Errorf("deactivate goals: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, 1, ?)`,
			g.ID, g.UserID, string(g.Period), g.Target, toUnix(g.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
		return nil
	})
}

// ActiveGoal returns the user's active goal, or nil when none is set.
func (d *DB) ActiveGoal(ctx context.Context, userID string) (*domain.Goal, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND active = 1`, userID,
	)
	g, err := scanGoal(row)
	if err != nil {
		return nil, fmt.Errorf("active goal: %w", err)
	}
	return g, nil
}

// ListGoals returns every goal the user ever set, newest first.
func (d *DB) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY seq DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func scanGoal(s scanner) (*domain.Goal, error) {
	var g domain.Goal
	var period string
	var createdAt int64

	err := s.Scan(&g.ID, &g.UserID, &period, &g.Target, &g.Active, &createdAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.Period = domain.GoalPeriod(period)
	g.CreatedAt = fromUnix(createdAt)
	return &g, nil
}
