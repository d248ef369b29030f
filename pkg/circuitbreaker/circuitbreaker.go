// Package circuitbreaker provides a simple circuit breaker for
// cross-service HTTP calls.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State represents the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker rejects a call.
var ErrOpen = errors.New("circuit breaker is open")

// Settings configures a Breaker.
type Settings struct {
	Name string

	// MaxFailures is the consecutive-failure count that opens the circuit.
	MaxFailures int

	// CoolDown is how long the circuit stays open before probing.
	CoolDown time.Duration
}

// DefaultSettings returns the policy used for service-to-service calls.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:        name,
		MaxFailures: 5,
		CoolDown:    30 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern. The half-open state
// admits a single probe request.
type Breaker struct {
	settings Settings

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probeInUse  bool
}

// New creates a closed Breaker.
func New(settings Settings) *Breaker {
	return &Breaker{settings: settings, state: StateClosed}
}

// Do runs fn under breaker protection.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.settings.CoolDown {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.probeInUse = true
		return nil
	case StateHalfOpen:
		if b.probeInUse {
			return ErrOpen
		}
		b.probeInUse = true
		return nil
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
		}
		b.failures = 0
		b.probeInUse = false
		return
	}

	b.failures++
	b.probeInUse = false
	switch b.state {
	case StateClosed:
		if b.failures >= b.settings.MaxFailures {
			b.openedAt = time.Now()
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.openedAt = time.Now()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	log.Warn().
		Str("breaker", b.settings.Name).
		Str("from", b.state.String()).
		Str("to", to.String()).
		Msg("Circuit breaker state change")
	b.state = to
}
