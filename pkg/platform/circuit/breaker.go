// Package circuit provides a two-state circuit breaker.
package circuit

import "sync"

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the dependency is healthy.
	StateClosed State = iota
	// StateOpen means the dependency has failed repeatedly.
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange reports a transition caused by the last recorded outcome.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker counts consecutive outcomes of calls to one dependency. After
// failureThreshold consecutive failures it opens; after successThreshold
// consecutive successes while open it closes again. Callers decide what an
// open circuit means for them.
type Breaker struct {
	mu               sync.Mutex
	state            State
	name             string
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
}

type Option func(*Breaker)

// WithFailureThreshold sets the consecutive failures that open the circuit. Default 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the consecutive successes that close it again. Default 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

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

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.successCount = 0
	if b.state == StateClosed && b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		return StateChange{Opened: true}
	}
	return StateChange{}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state == StateOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = StateClosed
			b.successCount = 0
			return StateChange{Closed: true}
		}
	}
	return StateChange{}
}

// Reset closes the circuit and clears the counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
}
