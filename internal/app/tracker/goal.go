package tracker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/metrics"
)

// Progress evaluates todayTotal against the goal target. A zero target is
// treated as already reached.
func Progress(goal domain.Goal, todayTotal int64) domain.GoalProgress {
	target := int64(goal.Target)

	remaining := target - todayTotal
	if remaining < 0 {
		remaining = 0
	}

	percent := 100.0
	if target > 0 {
		percent = min(100, round(100*float64(todayTotal)/float64(target), 1))
	}

	return domain.GoalProgress{
		Goal:            goal,
		TodayTotal:      todayTotal,
		Remaining:       remaining,
		ProgressPercent: percent,
	}
}

// GoalService manages the single active goal and its history.
type GoalService struct {
	store domain.GoalStore
	agg   *Aggregator
	clock Clock
}

// NewGoalService creates a goal service.
func NewGoalService(store domain.GoalStore, agg *Aggregator, clock Clock) *GoalService {
	return &GoalService{store: store, agg: agg, clock: clock}
}

// SetGoal replaces the user's active goal. The previous goal stays in history
// as inactive.
func (s *GoalService) SetGoal(ctx context.Context, userID, period string, target int) (domain.Goal, error) {
	if err := domain.RequireUser(userID); err != nil {
		return domain.Goal{}, err
	}
	p, err := domain.ParseGoalPeriod(period)
	if err != nil {
		return domain.Goal{}, err
	}
	if target < 0 {
		return domain.Goal{}, fmt.Errorf("%w: got %d", domain.ErrInvalidTarget, target)
	}

	g := domain.Goal{
		ID:        uuid.New().String(),
		UserID:    userID,
		Period:    p,
		Target:    target,
		Active:    true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.ReplaceActiveGoal(ctx, g); err != nil {
		return domain.Goal{}, err
	}

	metrics.GoalsSet.WithLabelValues(string(p)).Inc()
	return g, nil
}

// ActiveGoal returns the user's active goal or ErrGoalNotSet.
func (s *GoalService) ActiveGoal(ctx context.Context, userID string) (domain.Goal, error) {
	if err := domain.RequireUser(userID); err != nil {
		return domain.Goal{}, err
	}
	g, err := s.store.ActiveGoal(ctx, userID)
	if err != nil {
		return domain.Goal{}, err
	}
	if g == nil {
		return domain.Goal{}, domain.ErrGoalNotSet
	}
	return *g, nil
}

// Progress combines the active goal with today's total.
func (s *GoalService) Progress(ctx context.Context, userID string) (domain.GoalProgress, error) {
	g, err := s.ActiveGoal(ctx, userID)
	if err != nil {
		return domain.GoalProgress{}, err
	}
	today, err := s.agg.TodaySummary(ctx, userID)
	if err != nil {
		return domain.GoalProgress{}, err
	}
	return Progress(g, today.TotalCount), nil
}

// History returns every goal the user has set, newest first.
func (s *GoalService) History(ctx context.Context, userID string) ([]domain.Goal, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	return s.store.ListGoals(ctx, userID)
}
