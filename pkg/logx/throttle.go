package logx

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle rate-limits log lines per key (e.g. a task id) so one misbehaving
// task cannot flood the sinks. Each key gets its own token bucket.
type Throttle struct {
	every time.Duration
	burst int

	mu   sync.Mutex
	keys map[uint64]*rate.Limiter
}

// NewThrottle allows burst lines per key, refilled at one line per every.
func NewThrottle(every time.Duration, burst int) *Throttle {
	if every <= 0 {
		every = 5 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{every: every, burst: burst, keys: map[uint64]*rate.Limiter{}}
}

// Allow reports whether a line for key may be written now.
func (t *Throttle) Allow(key uint64) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	lim := t.keys[key]
	if lim == nil {
		lim = rate.NewLimiter(rate.Every(t.every), t.burst)
		t.keys[key] = lim
	}
	t.mu.Unlock()
	return lim.Allow()
}

// Forget drops the limiter for key.
func (t *Throttle) Forget(key uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.keys, key)
	t.mu.Unlock()
}
