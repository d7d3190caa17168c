package sqlite

import (
	"context"
	"fmt"

	"github.com/quitvipe/quitvipe/internal/domain"
)

// ─── Badges ─────────────────────────────────────────────────────────────────

// AwardBadge records a badge as unlocked.
// Returns false if the user already has this badge type (idempotent).
func (d *DB) AwardBadge(ctx context.Context, b domain.Badge) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO badges (id, user_id, type, description, icon, unlocked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, string(b.Type), b.Description, b.Icon, toUnix(b.UnlockedAt),
	)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil // true = newly unlocked
}

// ListBadges returns a user's badges, most recently unlocked first.
func (d *DB) ListBadges(ctx context.Context, userID string) ([]domain.Badge, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, type, description, icon, unlocked_at
		 FROM badges WHERE user_id = ? ORDER BY unlocked_at DESC, rowid DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []domain.Badge
	for rows.Next() {
		var b domain.Badge
		var typ string
		var unlockedAt int64
		if err := rows.Scan(&b.ID, &b.UserID, &typ, &b.Description, &b.Icon, &unlockedAt); err != nil {
			return nil, err
		}
		b.Type = domain.BadgeType(typ)
		b.UnlockedAt = fromUnix(unlockedAt)
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification creates a new notification.
func (d *DB) InsertNotification(ctx context.Context, n domain.Notification) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, body, created_at, shown)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.UserID, string(n.Type), n.Title, n.Body, toUnix(n.CreatedAt), n.Shown,
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return result.LastInsertId()
}

// ListPendingNotifications returns a user's unshown notifications, newest first.
func (d *DB) ListPendingNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, body, created_at, shown
		 FROM notifications WHERE user_id = ? AND shown = 0
		 ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifs []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Body, &createdAt, &n.Shown); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(typ)
		n.CreatedAt = fromUnix(createdAt)
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkNotificationShown marks one of the user's notifications as shown.
// Returns false when no such notification belongs to the user.
func (d *DB) MarkNotificationShown(ctx context.Context, userID string, id int64) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`UPDATE notifications SET shown = 1 WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("mark notification: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
