package mcircuitbreaker

import "sync"

// Registry hands out one Breaker per service name, creating it from
// newConfig on first use. Callers that protect many downstream
// dependencies (Postgres index, Mongo KB store, RabbitMQ publish, ...)
// share a single Registry instead of wiring a Breaker per call site.
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*Breaker
	newConfig func(serviceName string) Config
}

// NewRegistry creates a Registry. newConfig builds the Config for a
// service name the first time it is seen; pass DefaultConfig to use the
// same defaults for everything.
func NewRegistry(newConfig func(serviceName string) Config) *Registry {
	return &Registry{
		breakers:  make(map[string]*Breaker),
		newConfig: newConfig,
	}
}

// Get returns the Breaker for serviceName, creating it on first access.
func (r *Registry) Get(serviceName string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[serviceName]; ok {
		return b
	}

	b := New(r.newConfig(serviceName))
	r.breakers[serviceName] = b

	return b
}
