package mcircuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateChangeEvent_ContainsRequiredFields(t *testing.T) {
	event := StateChangeEvent{
		ServiceName: "test-service",
		FromState:   StateClosed,
		ToState:     StateOpen,
		Counts: Counts{
			Requests:            10,
			TotalFailures:       5,
			ConsecutiveFailures: 3,
		},
	}

	assert.Equal(t, "test-service", event.ServiceName)
	assert.Equal(t, StateClosed, event.FromState)
	assert.Equal(t, StateOpen, event.ToState)
	assert.Equal(t, uint32(10), event.Counts.Requests)
	assert.Equal(t, uint32(5), event.Counts.TotalFailures)
	assert.Equal(t, uint32(3), event.Counts.ConsecutiveFailures)
}

func TestStateListener_CanReceiveEvents(t *testing.T) {
	listener := &mockListener{}

	event := StateChangeEvent{
		ServiceName: "rabbitmq-producer",
		FromState:   StateClosed,
		ToState:     StateOpen,
	}

	listener.OnCircuitBreakerStateChange(event)

	assert.Len(t, listener.calls, 1)
	assert.Equal(t, "rabbitmq-producer", listener.calls[0].ServiceName)
}

func tripConfig(name string) Config {
	return Config{
		ServiceName:              name,
		WindowSize:                5,
		MinimumRequests:           3,
		FailureThreshold:          3,
		ErrorPercentageThreshold:  0,
		OpenDuration:              20 * time.Millisecond,
		HalfOpenMaxCalls:          1,
		HalfOpenSuccessThreshold:  2,
	}
}

func TestBreaker_TripsOnRawFailureCount(t *testing.T) {
	b := New(tripConfig("svc-a"))
	listener := &mockListener{}
	b.AddListener(listener)

	fail := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := b.Execute(func() error { return fail })
		assert.ErrorIs(t, err, fail)
	}

	assert.Equal(t, StateOpen, b.State())
	assert.Len(t, listener.calls, 1)
	assert.Equal(t, StateClosed, listener.calls[0].FromState)
	assert.Equal(t, StateOpen, listener.calls[0].ToState)
}

func TestBreaker_RejectsCallsWhileOpen(t *testing.T) {
	b := New(tripConfig("svc-b"))

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errors.New("boom") })
	}

	require := assert.New(t)
	require.Equal(StateOpen, b.State())

	err := b.Execute(func() error {
		t.Fatal("protected call must not run while breaker is open")
		return nil
	})
	require.Error(err)
}

func TestBreaker_HalfOpenAdmissionIsDecoupledFromCloseThreshold(t *testing.T) {
	cfg := tripConfig("svc-c")
	cfg.HalfOpenMaxCalls = 1
	cfg.HalfOpenSuccessThreshold = 2
	b := New(cfg)

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errors.New("boom") })
	}

	require := assert.New(t)
	require.Equal(StateOpen, b.State())

	time.Sleep(cfg.OpenDuration + 5*time.Millisecond)

	// First probe succeeds: only one successful call so far, below the
	// close threshold of 2, so the breaker must still be half-open.
	err := b.Execute(func() error { return nil })
	require.NoError(err)
	require.Equal(StateHalfOpen, b.State())

	// Second consecutive probe success reaches the close threshold.
	err = b.Execute(func() error { return nil })
	require.NoError(err)
	require.Equal(StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cfg := tripConfig("svc-d")
	b := New(cfg)

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errors.New("boom") })
	}

	time.Sleep(cfg.OpenDuration + 5*time.Millisecond)

	err := b.Execute(func() error { return errors.New("still broken") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, b.State())
}

func TestRegistry_SharesBreakerPerServiceName(t *testing.T) {
	reg := NewRegistry(DefaultConfig)

	a := reg.Get("svc-x")
	b := reg.Get("svc-x")
	c := reg.Get("svc-y")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
