// Package mresilience composes a circuit breaker registry with a retry
// executor into a single call path: every retry attempt must first be
// admitted by the named service's breaker, and every breaker outcome is
// the one the retry loop actually observed, so a breaker trip during a
// retry sequence stops the sequence instead of burning the remaining
// attempts against a dependency that just opened its circuit.
package mresilience

import (
	"context"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/pkg/mcircuitbreaker"
	"github.com/LerianStudio/midaz/pkg/mretry"
)

// Resilience protects calls to named downstream dependencies (the
// Postgres ledger index, the Mongo knowledge-base store, a RabbitMQ
// publish, ...) with a breaker-per-service-name registry and a shared
// retry policy.
type Resilience struct {
	breakers *mcircuitbreaker.Registry
	retry    mretry.Config
}

// New creates a Resilience facade. newBreakerConfig builds the breaker
// Config for a service name the first time it's protected; retryCfg is
// the retry policy shared by every protected call.
func New(newBreakerConfig func(serviceName string) mcircuitbreaker.Config, retryCfg mretry.Config) *Resilience {
	return &Resilience{
		breakers: mcircuitbreaker.NewRegistry(newBreakerConfig),
		retry:    retryCfg,
	}
}

// Execute runs op against serviceName's breaker and retry policy: each
// attempt first asks the breaker for admission, then runs op, then
// reports the outcome back to the breaker before the retry executor
// decides whether to try again. If the breaker rejects an attempt, that
// rejection (a *common.Error with Kind KindCircuitBroken) is returned at
// once without running op and, per mretry.Executor, is not charged
// against the retry budget.
func (r *Resilience) Execute(ctx context.Context, serviceName string, op mretry.Operation) error {
	breaker := r.breakers.Get(serviceName)
	executor := mretry.NewExecutor(r.retry)

	return executor.Execute(ctx, func(ctx context.Context) error {
		return breaker.Execute(func() error {
			return op(ctx)
		})
	})
}

// State reports the current breaker state for serviceName, for health
// checks and admin surfaces that want to expose dependency health
// without driving a protected call.
func (r *Resilience) State(serviceName string) mcircuitbreaker.State {
	return r.breakers.Get(serviceName).State()
}

// IsBreakerOpen reports whether err is the breaker's own rejection, as
// opposed to a failure op itself returned. Callers that want to
// distinguish "dependency is down" from "circuit is open and not even
// trying" can use this instead of inspecting Kind directly.
func IsBreakerOpen(err error) bool {
	cpErr, ok := err.(*common.Error)
	return ok && cpErr.Kind == common.KindCircuitBroken
}
