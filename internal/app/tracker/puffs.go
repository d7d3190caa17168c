package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/infra/metrics"
	"github.com/quitvipe/quitvipe/internal/infra/scheduler"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// futureSlack tolerates client clocks running slightly ahead.
const futureSlack = time.Minute

// PuffInput is one logging request.
type PuffInput struct {
	Count      int
	Trigger    string
	OccurredAt time.Time // zero means now
}

// RecordResult is the stored event plus any badges it unlocked.
type RecordResult struct {
	Event  domain.Event   `json:"puff"`
	Badges []domain.Badge `json:"badges"`
}

// PuffService records and undoes puff events.
type PuffService struct {
	events      domain.EventStore
	agg         *Aggregator
	stats       *StatsService
	badges      *BadgeEngine
	retries     *scheduler.RetryQueue
	clock       Clock
	log         *logger.Logger
	maxBackdate time.Duration
}

// NewPuffService creates a puff service.
// A nil retry queue disables retries of failed badge evaluations.
func NewPuffService(events domain.EventStore, agg *Aggregator, stats *StatsService, badges *BadgeEngine, retries *scheduler.RetryQueue, clock Clock, log *logger.Logger, maxBackdate time.Duration) *PuffService {
	return &PuffService{
		events:      events,
		agg:         agg,
		stats:       stats,
		badges:      badges,
		retries:     retries,
		clock:       clock,
		log:         log,
		maxBackdate: maxBackdate,
	}
}

// Validate checks a puff input before any store access and fills defaults.
func (s *PuffService) Validate(in PuffInput) (domain.Trigger, time.Time, error) {
	if in.Count < 1 {
		return "", time.Time{}, fmt.Errorf("%w: got %d", domain.ErrInvalidCount, in.Count)
	}
	trigger, err := domain.ParseTrigger(in.Trigger)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.clock.Now()
	occurred := in.OccurredAt
	if occurred.IsZero() {
		return trigger, now, nil
	}
	if occurred.After(now.Add(futureSlack)) {
		return "", time.Time{}, fmt.Errorf("%w: %s is in the future", domain.ErrInvalidTimestamp, occurred.Format(time.RFC3339))
	}
	if occurred.Before(now.Add(-s.maxBackdate)) {
		return "", time.Time{}, fmt.Errorf("%w: %s is older than %s", domain.ErrInvalidTimestamp, occurred.Format(time.RFC3339), s.maxBackdate)
	}
	return trigger, occurred, nil
}

// Record stores a puff event and then evaluates badges. Badge evaluation is
// best effort: a failure is logged and queued for retry, and the stored event
// is still returned.
func (s *PuffService) Record(ctx context.Context, userID string, in PuffInput) (RecordResult, error) {
	if err := domain.RequireUser(userID); err != nil {
		return RecordResult{}, err
	}
	trigger, occurred, err := s.Validate(in)
	if err != nil {
		return RecordResult{}, err
	}

	e := domain.Event{
		ID:         uuid.New().String(),
		UserID:     userID,
		Count:      in.Count,
		Trigger:    trigger,
		OccurredAt: occurred,
		CreatedAt:  s.clock.Now(),
		DayKey:     s.agg.Days().DayKey(occurred),
	}
	if err := s.events.InsertEvent(ctx, e); err != nil {
		return RecordResult{}, err
	}
	metrics.PuffsRecorded.WithLabelValues(string(trigger)).Inc()
	s.stats.Invalidate(ctx, userID)

	result := RecordResult{Event: e, Badges: []domain.Badge{}}
	awarded, err := s.badges.Evaluate(ctx, userID)
	if err != nil {
		metrics.BadgeEvaluationFailures.Inc()
		s.log.Error("badge evaluation failed", "user", userID, "event_id", e.ID, "error", err)
		if s.retries != nil {
			s.retries.Schedule(userID, err)
		}
	} else if s.retries != nil {
		s.retries.Forget(userID)
	}
	if len(awarded) > 0 {
		result.Badges = awarded
	}
	return result, nil
}

// Undo removes the most recently created event in today's window.
func (s *PuffService) Undo(ctx context.Context, userID string) (domain.Event, error) {
	if err := domain.RequireUser(userID); err != nil {
		return domain.Event{}, err
	}

	start, end := s.agg.Days().DayWindow(s.clock.Now())
	deleted, err := s.events.DeleteMostRecentEvent(ctx, userID, start, end)
	if err != nil {
		return domain.Event{}, err
	}
	if deleted == nil {
		return domain.Event{}, domain.ErrNothingToUndo
	}

	metrics.PuffsUndone.Inc()
	s.stats.Invalidate(ctx, userID)
	return *deleted, nil
}

// Today returns the current day's summary.
func (s *PuffService) Today(ctx context.Context, userID string) (domain.TodaySummary, error) {
	return s.agg.TodaySummary(ctx, userID)
}

// Recent returns up to limit of today's events, newest first.
func (s *PuffService) Recent(ctx context.Context, userID string, limit int) ([]domain.Event, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	events, err := s.agg.todayEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
