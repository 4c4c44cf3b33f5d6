package repository

import (
	"context"
	"sync"
	"time"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/sirupsen/logrus"
)

type rateWindow struct {
	start  time.Time
	count  int
	length time.Duration
}

// MemoryRateLimiter keeps one fixed-length window per key.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) WithClock(now func() time.Time) *MemoryRateLimiter {
	l.now = now
	return l
}

func (l *MemoryRateLimiter) Check(_ context.Context, key string, maxRequests int, window time.Duration) domain.RateDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > window {
		l.windows[key] = &rateWindow{start: now, count: 1, length: window}
		return domain.RateDecision{Allowed: true, Remaining: max(maxRequests-1, 0)}
	}

	w.count++
	if w.count > maxRequests {
		return domain.RateDecision{Allowed: false, Remaining: 0}
	}
	return domain.RateDecision{Allowed: true, Remaining: maxRequests - w.count}
}

// Sweep drops windows idle for more than twice their length.
func (l *MemoryRateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, w := range l.windows {
		if now.Sub(w.start) > 2*w.length {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

func (l *MemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// StartCleanup sweeps every interval until ctx is done.
func (l *MemoryRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Sweep(); n > 0 {
					logrus.Debugf("[RATELIMIT] Swept %d idle windows", n)
				}
			}
		}
	}()
}
