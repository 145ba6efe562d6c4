package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen rejects calls while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests rejects calls beyond the half-open probe budget.
	ErrTooManyRequests = errors.New("too many requests")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings tunes a breaker. Zero fields take defaults suited to the
// compositor client: one half-open probe, minute-scale windows, trip
// after five straight failures.
type Settings struct {
	// MaxRequests caps concurrent-or-sequential probes in half-open.
	MaxRequests uint32
	// Interval is how often closed-state counts reset. Without a reset,
	// slow background failure drips would eventually trip the breaker.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// ReadyToTrip decides, on each closed-state failure, whether to open.
	ReadyToTrip func(counts Counts) bool
	// OnStateChange observes transitions.
	OnStateChange func(name string, from State, to State)
}

// Counts is the rolling tally for the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker shields a flaky collaborator: it fails fast while open and
// lets a bounded number of probes through once the open timeout lapses.
type Breaker struct {
	name string
	cfg  Settings

	mu     sync.Mutex
	state  State
	counts Counts
	// gen increments on every state change and count reset. A result
	// reported against a stale generation is discarded, so a slow call
	// that straddles a transition cannot pollute the next window.
	gen    uint64
	expiry time.Time
}

// New builds a breaker named for the collaborator it guards.
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval == 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}

	return &Breaker{
		name:   name,
		cfg:    settings,
		state:  StateClosed,
		expiry: time.Now().Add(settings.Interval),
	}
}

// Name reports which collaborator this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// State reports the position, advancing open to half-open when the
// timeout has lapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(time.Now())
	return state
}

// Counts snapshots the current window's tally.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Execute runs req if the breaker admits it. A panic inside req counts
// as a failure and is re-raised.
func (b *Breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	gen, err := b.admit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if e := recover(); e != nil {
			b.report(gen, false)
			panic(e)
		}
	}()

	result, err := req()
	b.report(gen, err == nil)
	return result, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, gen := b.currentState(time.Now())

	if state == StateOpen {
		return gen, ErrCircuitOpen
	}
	if state == StateHalfOpen && b.counts.Requests >= b.cfg.MaxRequests {
		return gen, ErrTooManyRequests
	}

	b.counts.Requests++
	return gen, nil
}

func (b *Breaker) report(gen uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, current := b.currentState(now)
	if current != gen {
		return
	}

	if success {
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.cfg.MaxRequests {
			b.transition(StateClosed, now)
		}
		return
	}

	switch state {
	case StateClosed:
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.cfg.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		b.transition(StateOpen, now)
	}
}

// currentState rolls the closed window forward and promotes open to
// half-open once the timeout passes. Callers hold b.mu.
func (b *Breaker) currentState(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.resetWindow()
			b.expiry = now.Add(b.cfg.Interval)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state, b.gen
}

func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.resetWindow()

	switch state {
	case StateClosed:
		b.expiry = now.Add(b.cfg.Interval)
	case StateOpen:
		b.expiry = now.Add(b.cfg.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) resetWindow() {
	b.counts = Counts{}
	b.gen++
}
