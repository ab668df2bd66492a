package quota

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLimiter keeps counters in process memory. It is used when no Redis
// URL is configured, so limits are per replica and reset on restart.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	day    string
	now    func() time.Time
}

// NewMemoryLimiter creates an in-process Limiter. A nil clock means time.Now.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{counts: make(map[string]int), now: now}
}

func (l *MemoryLimiter) rollover(now time.Time) {
	day := now.UTC().Format("20060102")
	if day != l.day {
		l.counts = make(map[string]int)
		l.day = day
	}
}

// Consume records one use and returns how many remain today.
func (l *MemoryLimiter) Consume(_ context.Context, feature string, userID uuid.UUID, limit int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)

	key := Key(feature, userID, now)
	if l.counts[key] >= limit {
		return 0, ErrExceeded
	}
	l.counts[key]++
	return limit - l.counts[key], nil
}

// Refund gives back one use.
func (l *MemoryLimiter) Refund(_ context.Context, feature string, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)

	key := Key(feature, userID, now)
	if l.counts[key] > 0 {
		l.counts[key]--
	}
	return nil
}
