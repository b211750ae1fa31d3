// Package circuit provides a two-state circuit breaker for best-effort
// dependencies. Its consumer in this codebase is the audit pipeline, which
// wraps its kafka sink in a Breaker so a slow or down broker sheds events
// instead of stalling the request path.
package circuit

import "sync"

// State is the circuit state.
type State int

const (
	// StateClosed means the guarded dependency is healthy and calls flow through.
	StateClosed State = iota
	// StateOpen means the dependency has tripped the breaker; callers should
	// drop or fall back until probes close it again.
	StateOpen
)

// StateChange reports a transition so callers can log it exactly once.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker counts consecutive outcomes of a fail-safe operation. While
// closed, calls flow through; after failureThreshold consecutive failures
// it opens, and after successThreshold consecutive successes while open it
// closes again. There is no half-open state: callers keep probing the
// dependency while open (the audit sink probes on every append).
type Breaker struct {
	mu               sync.Mutex
	state            State
	name             string
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
}

// Option configures a Breaker instance.
type Option func(*Breaker)

// WithFailureThreshold sets the number of consecutive failures to open the circuit.
// Default is 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the number of consecutive successes to close the circuit.
// Default is 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a circuit breaker with the given name and options.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name identifies the guarded dependency in logs.
func (b *Breaker) Name() string {
	return b.name
}

// IsOpen returns true if the circuit is open (tripped).
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordFailure records a failed call against the guarded dependency.
// useFallback is true when the circuit is now open; change marks the
// closed-to-open transition so it can be logged once.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.successCount = 0

	if b.state == StateOpen {
		return true, StateChange{}
	}

	if b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		return true, StateChange{Opened: true}
	}

	return false, StateChange{}
}

// RecordSuccess records a successful call. usePrimary is true when the
// circuit is closed (or just closed); change marks the open-to-closed
// transition.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			return true, StateChange{Closed: true}
		}
		return false, StateChange{}
	}

	b.failureCount = 0
	return true, StateChange{}
}

// Reset resets the circuit breaker to closed state with zero counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
}
