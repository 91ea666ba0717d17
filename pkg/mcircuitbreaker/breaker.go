// Package mcircuitbreaker implements the control-plane circuit breaker: a
// per-service-name state machine that trips on either a raw failure count
// or an error-rate over a sliding window, and that decouples how many
// trial calls are allowed while half-open from how many of them must
// succeed before the breaker closes again.
package mcircuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/LerianStudio/midaz/common"
)

// State is the circuit breaker's current disposition.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
	StateUnknown  State = "unknown"
)

// Counts tracks request outcomes since the breaker last closed.
type Counts struct {
	Requests             uint32
	TotalFailures        uint32
	ConsecutiveFailures  uint32
	TotalSuccesses       uint32
	ConsecutiveSuccesses uint32
}

func (c *Counts) onSuccess() {
	c.Requests++
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) onFailure() {
	c.Requests++
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// StateChangeEvent is delivered to every registered StateListener whenever
// the breaker transitions.
type StateChangeEvent struct {
	ServiceName string
	FromState   State
	ToState     State
	Counts      Counts
}

// StateListener observes breaker transitions, e.g. to drive metrics or logs.
type StateListener interface {
	OnCircuitBreakerStateChange(event StateChangeEvent)
}

// Config configures one named breaker instance.
type Config struct {
	// ServiceName identifies the protected dependency in logs, metrics and
	// the Error returned while the breaker is open.
	ServiceName string
	// WindowSize is how many of the most recent outcomes are kept to
	// evaluate the error-rate trip condition.
	WindowSize int
	// MinimumRequests is how many outcomes must be in the window before
	// either trip condition is evaluated, avoiding a trip on a cold start.
	MinimumRequests uint32
	// FailureThreshold trips the breaker once at least this many of the
	// outcomes in the window are failures. Zero disables raw-count
	// tripping.
	FailureThreshold uint32
	// ErrorPercentageThreshold trips the breaker once the window's failure
	// rate reaches this percentage (0-100). Zero disables percentage
	// tripping.
	ErrorPercentageThreshold float64
	// OpenDuration is how long the breaker stays Open before allowing a
	// half-open probe.
	OpenDuration time.Duration
	// HalfOpenMaxCalls is the probe budget: how many calls may be
	// in flight concurrently while half-open. This is independent of
	// HalfOpenSuccessThreshold.
	HalfOpenMaxCalls uint32
	// HalfOpenSuccessThreshold is how many consecutive half-open successes
	// are required before the breaker closes.
	HalfOpenSuccessThreshold uint32
}

// DefaultConfig returns reasonable defaults for a named service: a 100-call
// sliding window, 50% error rate or 10 raw failures to trip, a 30s open
// period, and a single probe that must succeed three times in a row to
// close.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:              serviceName,
		WindowSize:               100,
		MinimumRequests:          5,
		FailureThreshold:         10,
		ErrorPercentageThreshold: 50,
		OpenDuration:             30 * time.Second,
		HalfOpenMaxCalls:         1,
		HalfOpenSuccessThreshold: 3,
	}
}

// Breaker is a single named circuit breaker instance. It is safe for
// concurrent use.
type Breaker struct {
	cfg Config

	mu           sync.Mutex
	state        State
	openedAt     time.Time
	window       []bool
	windowPos    int
	windowFilled bool
	counts       Counts

	halfOpenInFlight  int32
	halfOpenSuccesses uint32

	listenersMu sync.RWMutex
	listeners   []StateListener
}

// New creates a Breaker starting in the Closed state.
func New(cfg Config) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}

	return &Breaker{
		cfg:    cfg,
		state:  StateClosed,
		window: make([]bool, cfg.WindowSize),
	}
}

// AddListener registers l to receive future state transitions.
func (b *Breaker) AddListener(l StateListener) {
	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()

	b.listeners = append(b.listeners, l)
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Counts returns a snapshot of the current counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Allow reports whether a call may proceed right now. On success it
// returns a done function that MUST be called exactly once with the call's
// outcome; on failure it returns a *common.Error describing why the call
// was rejected (KindCircuitBroken).
func (b *Breaker) Allow() (func(success bool), error) {
	b.mu.Lock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.OpenDuration {
			b.mu.Unlock()
			return nil, b.openError()
		}

		b.transitionLocked(StateHalfOpen)

		fallthrough
	case StateHalfOpen:
		if atomic.LoadInt32(&b.halfOpenInFlight) >= int32(b.cfg.HalfOpenMaxCalls) {
			b.mu.Unlock()
			return nil, b.openError()
		}

		atomic.AddInt32(&b.halfOpenInFlight, 1)
		b.mu.Unlock()

		return b.doneHalfOpen, nil
	default: // StateClosed, StateUnknown treated as closed
		b.mu.Unlock()
		return b.doneClosed, nil
	}
}

// Execute runs fn gated by the breaker: it rejects the call outright while
// open, and records fn's outcome against the trip/close conditions
// otherwise.
func (b *Breaker) Execute(fn func() error) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}

	err = fn()
	done(err == nil)

	return err
}

func (b *Breaker) openError() *common.Error {
	return common.New(common.KindCircuitBroken, "circuit breaker open for "+b.cfg.ServiceName).
		WithService(b.cfg.ServiceName).
		WithCode("CIRCUIT_OPEN").
		WithTransient()
}

func (b *Breaker) doneClosed(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.counts.onSuccess()
	} else {
		b.counts.onFailure()
	}

	b.recordWindowLocked(success)

	if !success && b.shouldTripLocked() {
		b.transitionLocked(StateOpen)
	}
}

func (b *Breaker) doneHalfOpen(success bool) {
	atomic.AddInt32(&b.halfOpenInFlight, -1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.counts.onSuccess()
		b.halfOpenSuccesses++

		if b.halfOpenSuccesses >= b.cfg.HalfOpenSuccessThreshold {
			b.transitionLocked(StateClosed)
		}

		return
	}

	b.counts.onFailure()
	b.transitionLocked(StateOpen)
}

// recordWindowLocked appends an outcome to the ring buffer. Caller holds b.mu.
func (b *Breaker) recordWindowLocked(success bool) {
	b.window[b.windowPos] = success
	b.windowPos = (b.windowPos + 1) % len(b.window)

	if b.windowPos == 0 {
		b.windowFilled = true
	}
}

// shouldTripLocked evaluates the raw-count and error-percentage trip
// conditions over the current window. Caller holds b.mu.
func (b *Breaker) shouldTripLocked() bool {
	total := len(b.window)
	if !b.windowFilled {
		total = b.windowPos
	}

	if uint32(total) < b.cfg.MinimumRequests {
		return false
	}

	var failures int

	for i := 0; i < total; i++ {
		if !b.window[i] {
			failures++
		}
	}

	if b.cfg.FailureThreshold > 0 && uint32(failures) >= b.cfg.FailureThreshold {
		return true
	}

	if b.cfg.ErrorPercentageThreshold > 0 {
		rate := float64(failures) / float64(total) * 100
		if rate >= b.cfg.ErrorPercentageThreshold {
			return true
		}
	}

	return false
}

// transitionLocked moves the breaker to newState, resetting per-state
// bookkeeping and notifying listeners. Caller holds b.mu.
func (b *Breaker) transitionLocked(newState State) {
	if newState == b.state {
		return
	}

	from := b.state
	b.state = newState

	switch newState {
	case StateOpen:
		b.openedAt = time.Now()
	case StateHalfOpen:
		atomic.StoreInt32(&b.halfOpenInFlight, 0)
		b.halfOpenSuccesses = 0
	case StateClosed:
		b.counts = Counts{}
		b.window = make([]bool, len(b.window))
		b.windowPos = 0
		b.windowFilled = false
	}

	event := StateChangeEvent{
		ServiceName: b.cfg.ServiceName,
		FromState:   from,
		ToState:     newState,
		Counts:      b.counts,
	}

	b.listenersMu.RLock()
	listeners := append([]StateListener(nil), b.listeners...)
	b.listenersMu.RUnlock()

	for _, l := range listeners {
		l.OnCircuitBreakerStateChange(event)
	}
}
