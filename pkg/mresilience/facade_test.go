package mresilience

import (
	"context"
	"testing"
	"time"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/pkg/mcircuitbreaker"
	"github.com/LerianStudio/midaz/pkg/mretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() mretry.Config {
	return mretry.Config{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
		JitterFactor:   0,
		MaxElapsedTime: time.Second,
	}
}

func tripBreakerConfig(serviceName string) mcircuitbreaker.Config {
	return mcircuitbreaker.Config{
		ServiceName:              serviceName,
		WindowSize:               5,
		MinimumRequests:          3,
		FailureThreshold:         3,
		OpenDuration:             20 * time.Millisecond,
		HalfOpenMaxCalls:         1,
		HalfOpenSuccessThreshold: 1,
	}
}

func TestResilience_SucceedsOnFirstAttempt(t *testing.T) {
	r := New(tripBreakerConfig, fastRetryConfig())

	calls := 0
	err := r.Execute(context.Background(), "svc", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, mcircuitbreaker.StateClosed, r.State("svc"))
}

func TestResilience_RetriesTransientFailureThenSucceeds(t *testing.T) {
	r := New(tripBreakerConfig, fastRetryConfig())

	calls := 0
	err := r.Execute(context.Background(), "svc", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return common.New(common.KindUnavailable, "not yet").WithTransient()
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestResilience_StopsRetryingOnceBreakerOpens(t *testing.T) {
	// MaxRetries=0 makes each Execute call exactly one breaker attempt,
	// so the failure count observed by the breaker is deterministic
	// regardless of retry/backoff timing.
	cfg := fastRetryConfig()
	cfg.MaxRetries = 0
	r := New(tripBreakerConfig, cfg)

	calls := 0
	for i := 0; i < 5; i++ {
		_ = r.Execute(context.Background(), "svc", func(ctx context.Context) error {
			calls++
			return common.New(common.KindUnavailable, "down").WithTransient()
		})
	}

	assert.Equal(t, mcircuitbreaker.StateOpen, r.State("svc"))

	// The breaker trips after 3 raw failures (MinimumRequests=3,
	// FailureThreshold=3); once open, further calls are rejected by the
	// breaker itself rather than invoking op again.
	assert.Equal(t, 3, calls)
}

func TestResilience_RejectsImmediatelyWhileBreakerOpen(t *testing.T) {
	r := New(tripBreakerConfig, fastRetryConfig())

	for i := 0; i < 3; i++ {
		_ = r.Execute(context.Background(), "svc-open", func(ctx context.Context) error {
			return common.New(common.KindUnavailable, "down").WithTransient()
		})
	}

	require.Equal(t, mcircuitbreaker.StateOpen, r.State("svc-open"))

	cfg := fastRetryConfig()
	cfg.MaxRetries = 0
	r2 := New(tripBreakerConfig, cfg)

	for i := 0; i < 3; i++ {
		_ = r2.Execute(context.Background(), "svc-reject", func(ctx context.Context) error {
			return common.New(common.KindUnavailable, "down").WithTransient()
		})
	}

	calls := 0
	err := r2.Execute(context.Background(), "svc-reject", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.True(t, IsBreakerOpen(err))
	assert.Equal(t, 0, calls)
}

func TestResilience_DoesNotRetryNonTransientError(t *testing.T) {
	r := New(tripBreakerConfig, fastRetryConfig())

	calls := 0
	err := r.Execute(context.Background(), "svc-val", func(ctx context.Context) error {
		calls++
		return common.New(common.KindValidation, "bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, mcircuitbreaker.StateClosed, r.State("svc-val"))
}

func TestResilience_RecoversAfterOpenDurationElapses(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.MaxRetries = 0
	r := New(tripBreakerConfig, cfg)

	for i := 0; i < 3; i++ {
		_ = r.Execute(context.Background(), "svc-recover", func(ctx context.Context) error {
			return common.New(common.KindUnavailable, "down").WithTransient()
		})
	}

	require.Equal(t, mcircuitbreaker.StateOpen, r.State("svc-recover"))

	time.Sleep(25 * time.Millisecond)

	err := r.Execute(context.Background(), "svc-recover", func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, mcircuitbreaker.StateClosed, r.State("svc-recover"))
}

func TestResilience_SharesBreakerStateAcrossCalls(t *testing.T) {
	r := New(tripBreakerConfig, fastRetryConfig())

	_ = r.Execute(context.Background(), "svc-shared", func(ctx context.Context) error { return nil })
	assert.Equal(t, mcircuitbreaker.StateClosed, r.State("svc-shared"))

	a := r.breakers.Get("svc-shared")
	b := r.breakers.Get("svc-shared")
	assert.Same(t, a, b)
}
