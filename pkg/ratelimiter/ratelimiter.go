// Package ratelimiter implements a token bucket rate limiter used to
// pace outgoing provider API calls.
package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type RateLimiter interface {
	TakeToken() bool
	Wait()
}

type TokenBucket struct {
	capacity   int64
	tokens     int64
	refillRate int64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(refillRate, capacity int64) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}

	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) TakeToken() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tb.tokens = min(tb.capacity, tb.tokens+int64(elapsed.Seconds())*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Wait() {
	_ = tb.WaitContext(context.Background())
}

// WaitContext blocks until a token is available or the context is done.
func (tb *TokenBucket) WaitContext(ctx context.Context) error {
	interval := time.Second / time.Duration(tb.refillRate)
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}

	for !tb.TakeToken() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}
