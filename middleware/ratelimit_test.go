package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewIPRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request over the limit should be blocked")
	}

	// A different IP has its own window.
	if !rl.Allow("5.6.7.8") {
		t.Error("other IPs should not share the window")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewIPRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("second request inside the window should be blocked")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("1.2.3.4") {
		t.Error("request after the window expired should be allowed")
	}
}
