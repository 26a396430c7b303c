package ratelimit

import "testing"

func TestAllowRequestUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, 100, 1000, true)

	for i := 0; i < 3; i++ {
		if !rl.AllowRequest() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.AllowRequest() {
		t.Fatalf("request over the per-minute limit should be rejected")
	}
}

func TestAllowRequestDisabled(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1, false)

	for i := 0; i < 10; i++ {
		if !rl.AllowRequest() {
			t.Fatalf("disabled limiter must allow everything")
		}
	}
}

func TestRejectedRequestNotCounted(t *testing.T) {
	rl := NewRateLimiter(2, 100, 1000, true)

	rl.AllowRequest()
	rl.AllowRequest()
	rl.AllowRequest() // rejected

	stats := rl.GetStats()
	if stats.RequestsLastMinute != 2 {
		t.Fatalf("rejected request must not count, got %d", stats.RequestsLastMinute)
	}
}

func TestGetStats(t *testing.T) {
	rl := NewRateLimiter(10, 100, 1000, true)
	rl.AllowRequest()
	rl.AllowRequest()

	stats := rl.GetStats()
	if !stats.Enabled {
		t.Fatalf("expected enabled stats")
	}
	if stats.RequestsLastMinute != 2 || stats.RequestsLastHour != 2 || stats.RequestsLastDay != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.LimitPerMinute != 10 || stats.LimitPerHour != 100 || stats.LimitPerDay != 1000 {
		t.Fatalf("unexpected limits: %+v", stats)
	}
}

func TestReset(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1, true)
	rl.AllowRequest()
	if rl.AllowRequest() {
		t.Fatalf("limit of 1 should reject the second request")
	}

	rl.Reset()
	if !rl.AllowRequest() {
		t.Fatalf("reset should clear the windows")
	}
}
