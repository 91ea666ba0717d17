package mretry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/LerianStudio/midaz/common"
)

// Executor runs an operation with exponential backoff retry, gated on the
// returned error's Transient flag: a non-transient error (e.g. validation)
// returns immediately on the first attempt, since retrying it can never
// succeed.
type Executor struct {
	cfg Config
}

// NewExecutor creates an Executor for cfg. cfg is not validated here;
// callers are expected to have called Config.Validate at construction time
// of their own config, mirroring the teacher's fail-fast-at-boot
// convention for env-driven config structs.
func NewExecutor(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

// Operation is a unit of work the Executor retries. It follows the common
// convention of returning a *common.Error so the executor can inspect
// Transient without type-asserting a generic error.
type Operation func(ctx context.Context) error

// Execute runs op, retrying on transient failures with exponential backoff
// until MaxRetries, MaxElapsedTime, or ctx is exhausted. A circuit-breaker
// rejection (KindCircuitBroken) ends the loop at once and is returned with
// the number of attempts op actually made; it is not itself charged
// against MaxRetries, since the breaker refused to even attempt the call.
func (e *Executor) Execute(ctx context.Context, op Operation) error {
	start := time.Now()
	backoff := e.cfg.InitialBackoff

	var lastErr error

	attempt := 0

	for {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !isTransient(lastErr) {
			return lastErr
		}

		if isBreakerRejection(lastErr) {
			return withAttempts(lastErr, attempt)
		}

		if attempt >= e.cfg.MaxRetries {
			return withAttempts(lastErr, attempt+1)
		}

		attempt++

		if e.cfg.MaxElapsedTime > 0 && time.Since(start) >= e.cfg.MaxElapsedTime {
			return withAttempts(lastErr, attempt)
		}

		wait := jitter(backoff, e.cfg.JitterFactor)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * e.cfg.Multiplier)
		if backoff > e.cfg.MaxBackoff {
			backoff = e.cfg.MaxBackoff
		}
	}
}

// withAttempts annotates a *common.Error with the number of attempts the
// executor made before giving up, so callers and log lines downstream can
// see how exhausted the retry budget was without re-deriving it. Any other
// error type is returned unchanged, since only this module's own error
// model carries a context map.
func withAttempts(err error, attempts int) error {
	var cpErr *common.Error
	if errors.As(err, &cpErr) {
		return cpErr.WithContext("attempts", attempts)
	}

	return err
}

// isTransient reports whether err should be retried: a *common.Error is
// gated on its Transient flag; any other error type is treated as
// non-retryable, since only this module's own error model carries that
// signal.
func isTransient(err error) bool {
	var cpErr *common.Error
	if errors.As(err, &cpErr) {
		return cpErr.IsTransient()
	}

	return false
}

// isBreakerRejection reports whether err is a circuit breaker's own
// admission refusal rather than a failure op itself produced.
func isBreakerRejection(err error) bool {
	var cpErr *common.Error
	if errors.As(err, &cpErr) {
		return cpErr.Kind == common.KindCircuitBroken
	}

	return false
}

// jitter randomizes d by +/- factor, matching the exponential-backoff
// randomization_factor convention: a factor of 0.25 spreads the wait over
// [0.75*d, 1.25*d].
func jitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}

	delta := float64(d) * factor
	min := float64(d) - delta
	max := float64(d) + delta

	return time.Duration(min + rand.Float64()*(max-min))
}
