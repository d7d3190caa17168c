package tracker

import (
	"context"
	"fmt"

	"github.com/quitvipe/quitvipe/internal/domain"
)

// DefaultNotificationLimit caps Pending when the caller passes no limit.
const DefaultNotificationLimit = 20

// NotificationService keeps the per-user notification log.
// Only badge unlocks produce notifications; nothing nags about streaks.
type NotificationService struct {
	store domain.NotificationStore
	clock Clock
}

// NewNotificationService creates a notification service.
func NewNotificationService(store domain.NotificationStore, clock Clock) *NotificationService {
	return &NotificationService{store: store, clock: clock}
}

// NotifyBadge records a notification for a newly unlocked badge.
func (n *NotificationService) NotifyBadge(ctx context.Context, b domain.Badge, rule BadgeRule) (int64, error) {
	id, err := n.store.InsertNotification(ctx, domain.Notification{
		UserID:    b.UserID,
		Type:      domain.NotifyBadge,
		Title:     fmt.Sprintf("%s %s unlocked", rule.Icon, rule.Name),
		Body:      rule.Description,
		CreatedAt: n.clock.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// Pending returns the user's unshown notifications, newest first.
func (n *NotificationService) Pending(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return n.store.ListPendingNotifications(ctx, userID, limit)
}

// MarkShown marks one of the user's notifications as shown.
func (n *NotificationService) MarkShown(ctx context.Context, userID string, id int64) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	ok, err := n.store.MarkNotificationShown(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotificationNotFound
	}
	return nil
}
