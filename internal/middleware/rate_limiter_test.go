package middleware

import (
	"testing"
	"time"
)

func TestKeyRateLimiterAllowsBurstThenThrottles(t *testing.T) {
	limiter := NewKeyRateLimiter(1, time.Second, 3, time.Minute)

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow("chat-1") {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want the burst of 3", allowed)
	}
}

func TestKeyRateLimiterIsolatesKeys(t *testing.T) {
	limiter := NewKeyRateLimiter(1, time.Second, 1, time.Minute)

	if !limiter.Allow("chat-1") {
		t.Fatal("first event for chat-1 should pass")
	}
	if limiter.Allow("chat-1") {
		t.Fatal("second event for chat-1 should be throttled")
	}
	if !limiter.Allow("chat-2") {
		t.Fatal("chat-2 must not share chat-1's budget")
	}
}

func TestKeyRateLimiterExpiresIdleEntries(t *testing.T) {
	limiter := NewKeyRateLimiter(1, time.Second, 1, time.Minute).(*keyRateLimiter)

	current := time.Unix(1000, 0)
	limiter.WithNowFunc(func() time.Time { return current })

	limiter.Allow("chat-1")
	if len(limiter.visitors) != 1 {
		t.Fatalf("visitors = %d, want 1", len(limiter.visitors))
	}

	current = current.Add(2 * time.Minute)
	limiter.Allow("chat-2")
	if _, ok := limiter.visitors["chat-1"]; ok {
		t.Fatal("idle entry should have been garbage collected")
	}
}

func TestKeyRateLimiterEmptyKey(t *testing.T) {
	limiter := NewKeyRateLimiter(1, time.Second, 1, time.Minute)
	if !limiter.Allow("") {
		t.Fatal("empty key should fall back to a shared bucket, not fail")
	}
}
