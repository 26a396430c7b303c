package ratelimit

import (
	"sync"
	"time"
)

// window is one sliding time window with its limit.
type window struct {
	span  time.Duration
	limit int
	hits  []time.Time
}

// RateLimiter enforces sliding-window request limits in front of the
// scrape-trigger endpoints. A limit of 0 disables that window.
type RateLimiter struct {
	enabled bool
	windows []*window
	mu      sync.Mutex
}

func NewRateLimiter(perMinute, perHour, perDay int, enabled bool) *RateLimiter {
	return &RateLimiter{
		enabled: enabled,
		windows: []*window{
			{span: time.Minute, limit: perMinute},
			{span: time.Hour, limit: perHour},
			{span: 24 * time.Hour, limit: perDay},
		},
	}
}

// AllowRequest reports whether a request fits under every window, and
// records it when allowed.
func (rl *RateLimiter) AllowRequest() bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for _, w := range rl.windows {
		w.prune(now)
		if w.limit > 0 && len(w.hits) >= w.limit {
			return false
		}
	}
	for _, w := range rl.windows {
		w.hits = append(w.hits, now)
	}
	return true
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept
}

// Stats reports current usage per window.
type Stats struct {
	Enabled            bool `json:"enabled"`
	RequestsLastMinute int  `json:"requests_last_minute"`
	RequestsLastHour   int  `json:"requests_last_hour"`
	RequestsLastDay    int  `json:"requests_last_day"`
	LimitPerMinute     int  `json:"limit_per_minute"`
	LimitPerHour       int  `json:"limit_per_hour"`
	LimitPerDay        int  `json:"limit_per_day"`
}

func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for _, w := range rl.windows {
		w.prune(now)
	}

	return Stats{
		Enabled:            true,
		RequestsLastMinute: len(rl.windows[0].hits),
		RequestsLastHour:   len(rl.windows[1].hits),
		RequestsLastDay:    len(rl.windows[2].hits),
		LimitPerMinute:     rl.windows[0].limit,
		LimitPerHour:       rl.windows[1].limit,
		LimitPerDay:        rl.windows[2].limit,
	}
}

// Reset clears all tracked requests (useful for testing).
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, w := range rl.windows {
		w.hits = nil
	}
}
