package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/quitvipe/quitvipe/internal/domain"
)

// ProfileService manages per-user settings and account removal.
type ProfileService struct {
	store domain.ProfileStore
	stats *StatsService
	clock Clock
}

// NewProfileService creates a profile service.
func NewProfileService(store domain.ProfileStore, stats *StatsService, clock Clock) *ProfileService {
	return &ProfileService{store: store, stats: stats, clock: clock}
}

// Get returns the user's profile or ErrProfileNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	if err := domain.RequireUser(userID); err != nil {
		return domain.Profile{}, err
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if p == nil {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return *p, nil
}

// Update applies a partial change, creating the profile on first use.
func (s *ProfileService) Update(ctx context.Context, userID string, u domain.ProfileUpdate) (domain.Profile, error) {
	if err := domain.RequireUser(userID); err != nil {
		return domain.Profile{}, err
	}
	if u.Empty() {
		return domain.Profile{}, domain.ErrEmptyUpdate
	}
	if u.DailyBaseline != nil && *u.DailyBaseline < 0 {
		return domain.Profile{}, fmt.Errorf("%w: got %d", domain.ErrInvalidBaseline, *u.DailyBaseline)
	}

	now := s.clock.Now()
	current, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	p := domain.Profile{UserID: userID, CreatedAt: now}
	if current != nil {
		p = *current
	}

	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.ClearQuitDate {
		p.QuitDate = nil
	} else if u.QuitDate != nil {
		q := *u.QuitDate
		p.QuitDate = &q
	}
	if u.DailyBaseline != nil {
		p.DailyBaseline = *u.DailyBaseline
	}
	p.UpdatedAt = now

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// DeleteAccount removes every record the user owns.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteUserData(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.stats.Invalidate(ctx, userID)
	return nil
}
