package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quitvipe/quitvipe/internal/domain"
)

// ─── Profiles ───────────────────────────────────────────────────────────────

// GetProfile returns the user's profile, or nil when none exists.
func (d *DB) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	var quitDate sql.NullInt64
	var createdAt, updatedAt int64

	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, name, quit_date, daily_baseline, created_at, updated_at
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.Name, &quitDate, &p.DailyBaseline, &createdAt, &updatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if quitDate.Valid {
		t := fromUnix(quitDate.Int64)
		p.QuitDate = &t
	}
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return &p, nil
}

// UpsertProfile inserts or replaces the user's profile.
func (d *DB) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, name, quit_date, daily_baseline, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			name=excluded.name,
			quit_date=excluded.quit_date,
			daily_baseline=excluded.daily_baseline,
			updated_at=excluded.updated_at`,
		p.UserID, p.Name, nullableUnix(p.QuitDate), p.DailyBaseline,
		toUnix(p.CreatedAt), toUnix(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// DeleteUserData removes everything stored for a user.
func (d *DB) DeleteUserData(ctx context.Context, userID string) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"events", "goals", "badges", "notifications", "profiles"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		return nil
	})
}
