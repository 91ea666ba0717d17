package mretry

import (
	"context"
	"testing"
	"time"

	"github.com/LerianStudio/midaz/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastTestConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Multiplier:     2.0,
		JitterFactor:   0,
		MaxElapsedTime: time.Second,
	}
}

func TestExecutor_SucceedsFirstTry(t *testing.T) {
	exec := NewExecutor(fastTestConfig())

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_RetriesTransientUntilSuccess(t *testing.T) {
	exec := NewExecutor(fastTestConfig())

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return common.New(common.KindUnavailable, "not yet").WithTransient()
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecutor_DoesNotRetryNonTransientError(t *testing.T) {
	exec := NewExecutor(fastTestConfig())

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return common.New(common.KindValidation, "bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_StopsAtMaxRetries(t *testing.T) {
	cfg := fastTestConfig()
	cfg.MaxRetries = 2
	exec := NewExecutor(cfg)

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return common.New(common.KindUnavailable, "persistent failure").WithTransient()
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestExecutor_RespectsContextCancellation(t *testing.T) {
	cfg := fastTestConfig()
	cfg.InitialBackoff = 50 * time.Millisecond
	cfg.MaxRetries = 10
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := exec.Execute(ctx, func(ctx context.Context) error {
		calls++
		return common.New(common.KindUnavailable, "still down").WithTransient()
	})

	require.Error(t, err)
	assert.Less(t, calls, 10)
}
