package recovery

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a call is short-circuited by an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerState is the circuit breaker state machine position.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "halfOpen"
	default:
		return "unknown"
	}
}

// Breaker is a per-operation circuit breaker shared by every session that
// calls the same downstream dependency. After threshold consecutive failures
// it opens and short-circuits calls for the cooldown window; the first call
// after cooldown runs as a half-open probe.
type Breaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	cooldown  time.Duration

	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	onTransition func(name string, from, to BreakerState)
	now          func() time.Time
}

// NewBreaker creates a closed breaker for the named operation.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 45 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// OnTransition registers a callback invoked on every state change.
func (b *Breaker) OnTransition(fn func(name string, from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

// Allow reports whether a call may proceed. While open it returns
// ErrCircuitOpen until the cooldown elapses, then admits a single probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.transition(BreakerHalfOpen)
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	if b.state != BreakerClosed {
		b.transition(BreakerClosed)
	}
}

// RecordFailure counts a failure, opening the breaker at the threshold.
// A failed half-open probe reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.probing = false
	if b.state == BreakerHalfOpen || (b.state == BreakerClosed && b.failures >= b.threshold) {
		b.openedAt = b.now()
		b.transition(BreakerOpen)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if b.onTransition != nil && from != to {
		b.onTransition(b.name, from, to)
	}
}
