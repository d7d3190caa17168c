package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Callers classify with errors.Is against the four kinds below.

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	// Validation
	ErrInvalidCount      = fmt.Errorf("%w: count must be at least 1", ErrValidation)
	ErrInvalidTrigger    = fmt.Errorf("%w: unknown trigger", ErrValidation)
	ErrInvalidTarget     = fmt.Errorf("%w: target must be zero or more", ErrValidation)
	ErrInvalidGoalPeriod = fmt.Errorf("%w: goal type must be daily, weekly or monthly", ErrValidation)
	ErrInvalidTimestamp  = fmt.Errorf("%w: occurred_at out of range", ErrValidation)
	ErrInvalidBaseline   = fmt.Errorf("%w: daily baseline must be zero or more", ErrValidation)
	ErrEmptyUpdate       = fmt.Errorf("%w: no valid fields to update", ErrValidation)

	// Not found
	ErrNothingToUndo        = fmt.Errorf("%w: no puffs found for today", ErrNotFound)
	ErrGoalNotSet           = fmt.Errorf("%w: no active goal", ErrNotFound)
	ErrProfileNotFound      = fmt.Errorf("%w: profile not found", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification not found", ErrNotFound)

	// Conflict (never surfaced; the badge engine swallows it)
	ErrBadgeExists = fmt.Errorf("%w: badge already unlocked", ErrConflict)
)

// RequireUser returns ErrUnauthorized for an empty user handle.
func RequireUser(userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	return nil
}
