// Package ratelimit provides the sliding-window request governor used by the
// NVD client. At most limit requests may start within one window; the caller
// that overflows the window sleeps until it reopens.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration

	lastRequest time.Time
	count       int

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Wait blocks until the caller is allowed to issue a request, then records
// it. The wait is an in-thread sleep; it stalls the calling goroutine for the
// remainder of the window when the window is full.
func (l *Limiter) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.lastRequest.IsZero() {
		elapsed := now.Sub(l.lastRequest)
		if elapsed >= l.window {
			l.count = 0
		} else if l.count >= l.limit {
			l.sleep(l.window - elapsed)
			l.count = 0
			now = l.now()
		}
	}

	l.count++
	l.lastRequest = now
}
