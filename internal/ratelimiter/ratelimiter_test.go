package ratelimiter

import (
	"context"
	"testing"
	"time"
)

// TestAllow verifies that Allow() enforces the configured burst.
func TestAllow(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed (within burst)", i)
		}
	}

	if limiter.Allow() {
		t.Fatal("request should be rate-limited after burst exhausted")
	}

	// 10 req/s means one token every 100ms.
	time.Sleep(110 * time.Millisecond)

	if !limiter.Allow() {
		t.Fatal("request should be allowed after token replenishment")
	}
}

// TestUnlimited verifies that a zero rate disables limiting.
func TestUnlimited(t *testing.T) {
	limiter := New(0, 0)

	for i := 0; i < 10000; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d rejected by unlimited limiter", i)
		}
	}
}

// TestWaitCancellation verifies that Wait respects context cancellation.
func TestWaitCancellation(t *testing.T) {
	limiter := New(1, 1)
	limiter.Allow() // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected context error from Wait, got nil")
	}
}

// TestIntervalPacing verifies that Pace enforces the minimum interval.
func TestIntervalPacing(t *testing.T) {
	const interval = 50 * time.Millisecond
	limiter := NewInterval(interval)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Pace(ctx); err != nil {
			t.Fatalf("Pace returned error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First event is immediate, the next two wait one interval each.
	if elapsed < 2*interval-10*time.Millisecond {
		t.Errorf("three paced events took %v, expected at least ~%v", elapsed, 2*interval)
	}
}

// TestIntervalDisabled verifies that a zero interval never blocks.
func TestIntervalDisabled(t *testing.T) {
	limiter := NewInterval(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := limiter.Pace(ctx); err != nil {
			t.Fatalf("Pace returned error: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("disabled limiter paced for %v", elapsed)
	}
}
