package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"keyword-pivot/pkg/logger"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a sliding-window limiter: at most limit hits per key within
// any window. Rejected attempts are not recorded.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
	log    *logger.Logger
}

// NewLimiter validates its arguments; store is owned by the caller.
func NewLimiter(store Store, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %v", window)
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    logger.GetLogger().WithField("component", "rate_limiter"),
	}, nil
}

// SetClock replaces the time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow records a hit for key if it fits in the window.
func (l *Limiter) Allow(key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	count, oldest, err := l.store.Count(key, now, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read rate limit state: %w", err)
	}

	if count >= l.limit {
		retry := oldest.Add(l.window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		l.log.WithFields(map[string]interface{}{
			"key":         key,
			"hits":        count,
			"retry_after": retry.String(),
		}).Debug("Rate limit exceeded")
		return Decision{Allowed: false, Limit: l.limit, RetryAfter: retry}, nil
	}

	if err := l.store.Add(key, now, l.window); err != nil {
		return Decision{}, fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - count - 1}, nil
}
