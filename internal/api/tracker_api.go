package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quitvipe/quitvipe/internal/app/tracker"
	"github.com/quitvipe/quitvipe/internal/domain"
)

// --- /api/puffs ---

type recordPuffRequest struct {
	Count      *int       `json:"count"`
	Trigger    string     `json:"trigger"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

func (s *Server) handleRecordPuff(w http.ResponseWriter, r *http.Request) {
	var req recordPuffRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := tracker.PuffInput{Count: 1, Trigger: req.Trigger}
	if req.Count != nil {
		in.Count = *req.Count
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	result, err := s.tracker.Puffs.Record(r.Context(), UserFrom(r.Context()), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, result)
}

func (s *Server) handleUndoPuff(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.tracker.Puffs.Undo(r.Context(), UserFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

type todayResponse struct {
	domain.TodaySummary
	Day   string         `json:"date"`
	Puffs []domain.Event `json:"puffs,omitempty"`
}

// handleToday returns today's summary. ?recent=N adds up to N of today's
// events, newest first.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserFrom(ctx)

	recent, err := queryInt(r, "recent", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "recent must be a non-negative integer")
		return
	}

	summary, err := s.tracker.Puffs.Today(ctx, userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp := todayResponse{TodaySummary: summary, Day: s.tracker.Aggregates.TodayKey()}
	if recent > 0 {
		if resp.Puffs, err = s.tracker.Puffs.Recent(ctx, userID, recent); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}
	writeData(w, http.StatusOK, resp)
}

// --- /api/stats ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tracker.Stats.RollingStats(r.Context(), UserFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// --- /api/goal ---

type setGoalRequest struct {
	Type        string `json:"type"`
	Target      *int   `json:"target"`
	TargetPuffs *int   `json:"target_puffs"`
}

// handleGetGoal returns the active goal with today's progress, or null.
func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	progress, err := s.tracker.Goals.Progress(r.Context(), UserFrom(r.Context()))
	if errors.Is(err, domain.ErrGoalNotSet) {
		writeData(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, progress)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target := req.Target
	if target == nil {
		target = req.TargetPuffs
	}
	if target == nil {
		s.writeDomainError(w, r, fmt.Errorf("%w: target is required", domain.ErrInvalidTarget))
		return
	}

	ctx := r.Context()
	userID := UserFrom(ctx)
	if _, err := s.tracker.Goals.SetGoal(ctx, userID, req.Type, *target); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	progress, err := s.tracker.Goals.Progress(ctx, userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, progress)
}

func (s *Server) handleGoalHistory(w http.ResponseWriter, r *http.Request) {
	goals, err := s.tracker.Goals.History(r.Context(), UserFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if goals == nil {
		goals = []domain.Goal{}
	}
	writeData(w, http.StatusOK, goals)
}

// --- /api/badges ---

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := s.tracker.Badges.List(r.Context(), UserFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if badges == nil {
		badges = []domain.Badge{}
	}
	writeData(w, http.StatusOK, badges)
}

func (s *Server) handleBadgeCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.tracker.Badges.Catalog(r.Context(), UserFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, catalog)
}

func (s *Server) handleEvaluateBadges(w http.ResponseWriter, r *http.Request) {
	awarded, err := s.tracker.Badges.Evaluate(r.Context(), UserFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if awarded == nil {
		awarded = []domain.Badge{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{"awarded": awarded})
}

// --- /api/notifications ---

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", tracker.DefaultNotificationLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
		return
	}
	notes, err := s.tracker.Notifications.Pending(r.Context(), UserFrom(r.Context()), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeData(w, http.StatusOK, notes)
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid notification id")
		return
	}
	if err := s.tracker.Notifications.MarkShown(r.Context(), UserFrom(r.Context()), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"id": id})
}

// --- /api/profile ---

type updateProfileRequest struct {
	Name          *string         `json:"name"`
	QuitDate      json.RawMessage `json:"quit_date"`
	DailyBaseline *int            `json:"daily_baseline"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.tracker.Profiles.Get(r.Context(), UserFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// handleUpdateProfile applies a partial update. quit_date accepts RFC 3339 or
// YYYY-MM-DD; null or "" clears it.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u := domain.ProfileUpdate{Name: req.Name, DailyBaseline: req.DailyBaseline}
	if len(req.QuitDate) > 0 {
		quit, unset, err := s.parseQuitDate(req.QuitDate)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		u.QuitDate, u.ClearQuitDate = quit, unset
	}

	p, err := s.tracker.Profiles.Update(r.Context(), UserFrom(r.Context()), u)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) parseQuitDate(raw json.RawMessage) (*time.Time, bool, error) {
	if string(raw) == "null" {
		return nil, true, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, false, fmt.Errorf("%w: quit_date must be a string", domain.ErrValidation)
	}
	if str == "" {
		return nil, true, nil
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return &t, false, nil
	}
	t, err := time.ParseInLocation(tracker.DayLayout, str, s.tracker.Aggregates.Days().Location())
	if err != nil {
		return nil, false, fmt.Errorf("%w: invalid quit date format", domain.ErrValidation)
	}
	return &t, false, nil
}

// handleDeleteProfile removes every record the user owns and ends the session.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Profiles.DeleteAccount(r.Context(), UserFrom(r.Context())); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.auth.clearSession(w, r); err != nil {
		s.log.Warn("failed to clear session after account delete", "error", err)
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}
