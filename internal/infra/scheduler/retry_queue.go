// Package scheduler retries failed background work with exponential backoff.
// The tracker uses it to re-run badge evaluations that failed after a puff
// was already stored; re-running is safe because awarding is idempotent.
package scheduler

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/quitvipe/quitvipe/internal/infra/metrics"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// ─── Retry Queue ────────────────────────────────────────────────────────────
// One pending entry per key. Scheduling a key that is already pending keeps
// its attempt count, so a user who fails repeatedly still backs off.

// RetryConfig configures the retry queue behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum retry attempts before giving up
	BaseDelay  time.Duration // Initial backoff delay (doubles each retry)
	MaxDelay   time.Duration // Cap on backoff delay
	Interval   time.Duration // How often Run drains ready entries
}

// DefaultRetryConfig returns production retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		BaseDelay:  5 * time.Second,
		MaxDelay:   5 * time.Minute,
		Interval:   10 * time.Second,
	}
}

// RetryEntry tracks one key's retry state.
type RetryEntry struct {
	Key       string
	Attempt   int       // Retries scheduled so far (1 = first retry)
	NextRetry time.Time // Earliest time this can be retried
	FailedAt  time.Time // When the last failure occurred
	Error     string    // Last failure reason
}

// RetryQueue schedules keyed retries with exponential backoff.
type RetryQueue struct {
	mu      sync.Mutex
	config  RetryConfig
	pending map[string]RetryEntry
	now     func() time.Time

	// Stats
	totalRetries   int64
	totalExhausted int64 // Keys that exceeded MaxRetries
}

// NewRetryQueue creates a retry queue.
func NewRetryQueue(cfg RetryConfig) *RetryQueue {
	def := DefaultRetryConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	return &RetryQueue{
		config:  cfg,
		pending: make(map[string]RetryEntry),
		now:     time.Now,
	}
}

// Schedule queues key for a retry after cause. Returns false once the key
// has exceeded MaxRetries; it is then dropped.
func (rq *RetryQueue) Schedule(key string, cause error) bool {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	entry, ok := rq.pending[key]
	if !ok {
		entry = RetryEntry{Key: key}
	}
	return rq.scheduleLocked(entry, cause)
}

func (rq *RetryQueue) scheduleLocked(entry RetryEntry, cause error) bool {
	entry.Attempt++
	if entry.Attempt > rq.config.MaxRetries {
		delete(rq.pending, entry.Key)
		rq.totalExhausted++
		return false
	}

	// Exponential backoff: baseDelay * 2^(attempt-1)
	delay := rq.config.BaseDelay
	for i := 1; i < entry.Attempt; i++ {
		delay *= 2
		if delay > rq.config.MaxDelay {
			delay = rq.config.MaxDelay
			break
		}
	}

	now := rq.now()
	entry.FailedAt = now
	entry.NextRetry = now.Add(delay)
	if cause != nil {
		entry.Error = cause.Error()
	}
	rq.pending[entry.Key] = entry
	rq.totalRetries++
	return true
}

// Forget drops a pending key, e.g. after it succeeded some other way.
func (rq *RetryQueue) Forget(key string) {
	rq.mu.Lock()
	delete(rq.pending, key)
	rq.mu.Unlock()
}

// DrainReady removes and returns every entry whose backoff has expired,
// oldest NextRetry first.
func (rq *RetryQueue) DrainReady() []RetryEntry {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	now := rq.now()
	var ready []RetryEntry
	for key, e := range rq.pending {
		if now.Before(e.NextRetry) {
			continue
		}
		ready = append(ready, e)
		delete(rq.pending, key)
	}
	slices.SortFunc(ready, func(a, b RetryEntry) int {
		return a.NextRetry.Compare(b.NextRetry)
	})
	return ready
}

// Run drains ready entries every Interval and calls fn for each. A failing
// fn reschedules the entry with its attempt count kept. Blocks until ctx ends.
func (rq *RetryQueue) Run(ctx context.Context, log *logger.Logger, fn func(ctx context.Context, key string) error) {
	ticker := time.NewTicker(rq.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rq.RunOnce(ctx, log, fn)
		}
	}
}

// RunOnce processes the currently ready entries once.
func (rq *RetryQueue) RunOnce(ctx context.Context, log *logger.Logger, fn func(ctx context.Context, key string) error) {
	for _, e := range rq.DrainReady() {
		if ctx.Err() != nil {
			return
		}
		err := fn(ctx, e.Key)
		if err == nil {
			metrics.RetryOutcomes.WithLabelValues("succeeded").Inc()
			continue
		}

		rq.mu.Lock()
		// A newer failure may have re-queued the key while fn ran.
		if cur, ok := rq.pending[e.Key]; ok && cur.Attempt > e.Attempt {
			e = cur
		}
		queued := rq.scheduleLocked(e, err)
		rq.mu.Unlock()

		if queued {
			metrics.RetryOutcomes.WithLabelValues("rescheduled").Inc()
			log.Warn("retry failed, rescheduled", "key", e.Key, "attempt", e.Attempt+1, "error", err)
		} else {
			metrics.RetryOutcomes.WithLabelValues("exhausted").Inc()
			log.Error("retry exhausted", "key", e.Key, "attempts", rq.config.MaxRetries, "error", err)
		}
	}
}

// Len returns the number of keys pending retry.
func (rq *RetryQueue) Len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return len(rq.pending)
}

// RetryStats holds retry queue statistics.
type RetryStats struct {
	PendingRetries int   `json:"pending_retries"`
	TotalRetries   int64 `json:"total_retries"`
	TotalExhausted int64 `json:"total_exhausted"` // Exceeded MaxRetries
}

// RetryStats returns current retry queue statistics.
func (rq *RetryQueue) RetryStats() RetryStats {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return RetryStats{
		PendingRetries: len(rq.pending),
		TotalRetries:   rq.totalRetries,
		TotalExhausted: rq.totalExhausted,
	}
}
