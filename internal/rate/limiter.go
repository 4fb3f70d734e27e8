// Package rate throttles inbound socket events.
package rate

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultWindow = time.Second
	DefaultLimit  = 20
)

type Options struct {
	// Window is the sliding window duration.
	//
	// Default is 1 second.
	Window time.Duration

	// Limit is the number of events allowed per window.
	//
	// Default is 20.
	Limit int

	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Limiter implements a sliding window rate limiter. One limiter guards
// the events of a single connection.
type Limiter struct {
	window  time.Duration
	limit   int
	history []time.Time // accepted events, oldest first
	clock   clock.Clock
	mu      sync.Mutex
}

func NewLimiter(opts Options) *Limiter {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Limiter{
		window: opts.Window,
		limit:  opts.Limit,
		clock:  opts.Clock,
	}
}

// Allow reports if one more event fits in the current window and records it.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.slide(now)

	if len(l.history) >= l.limit {
		return false
	}
	l.history = append(l.history, now)

	return true
}

// Remaining returns the number of events still allowed in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slide(l.clock.Now())
	return l.limit - len(l.history)
}

// RetryAfter returns how long until the next event is allowed.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.slide(now)
	if len(l.history) < l.limit {
		return 0
	}
	return l.history[0].Add(l.window).Sub(now)
}

func (l *Limiter) slide(now time.Time) {
	start := now.Add(-l.window)
	i := 0
	for i < len(l.history) && !l.history[i].After(start) {
		i++
	}
	l.history = append(l.history[:0:0], l.history[i:]...)
}
