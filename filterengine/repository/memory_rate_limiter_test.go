package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_WindowReset(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	limiter := NewMemoryRateLimiter().WithClock(clock.Now)

	for i := 1; i <= 10; i++ {
		d := limiter.Check(ctx, "shop:1.2.3.4", 10, time.Minute)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 10-i, d.Remaining)
		clock.Advance(time.Second)
	}

	d := limiter.Check(ctx, "shop:1.2.3.4", 10, time.Minute)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	// window started at t0, so exactly one minute later is still inside it
	clock.Advance(50 * time.Second)
	assert.False(t, limiter.Check(ctx, "shop:1.2.3.4", 10, time.Minute).Allowed)

	clock.Advance(time.Millisecond)
	d = limiter.Check(ctx, "shop:1.2.3.4", 10, time.Minute)
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryRateLimiter()

	assert.True(t, limiter.Check(ctx, "a", 1, time.Minute).Allowed)
	assert.False(t, limiter.Check(ctx, "a", 1, time.Minute).Allowed)
	assert.True(t, limiter.Check(ctx, "b", 1, time.Minute).Allowed)
}

func TestRateLimiter_SweepRemovesIdleWindows(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	limiter := NewMemoryRateLimiter().WithClock(clock.Now)

	limiter.Check(ctx, "old", 5, time.Minute)
	clock.Advance(90 * time.Second)
	limiter.Check(ctx, "recent", 5, time.Minute)

	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, limiter.Sweep())
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimiter_StartCleanupStopsWithContext(t *testing.T) {
	clock := newClock()
	limiter := NewMemoryRateLimiter().WithClock(clock.Now)
	limiter.Check(context.Background(), "k", 1, time.Millisecond)
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
}
