package reputation

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when the oracle is skipped after repeated failures.
var ErrBreakerOpen = errors.New("reputation oracle circuit open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// breaker opens after threshold consecutive failures and lets a single probe
// through once the cooldown has elapsed. A threshold of 0 disables it.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       Clock

	state    breakerState
	failures int
	openedAt time.Time
}

func newBreaker(threshold int, cooldown time.Duration, now Clock) *breaker {
	if now == nil {
		now = time.Now
	}
	return &breaker{threshold: threshold, cooldown: cooldown, now: now}
}

// Allow reports whether a call may go out. In half-open state only the first
// caller gets through until that probe is recorded.
func (b *breaker) Allow() bool {
	if b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = breakerHalfOpen
		return true
	case breakerHalfOpen:
		return false
	default:
		return true
	}
}

// Record feeds back the outcome of an allowed call.
func (b *breaker) Record(success bool) {
	if b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

// Release returns an unfinished probe slot, e.g. when the caller gave up.
func (b *breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
	}
}

func (b *breaker) State() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
