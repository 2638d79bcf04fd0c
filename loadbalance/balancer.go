// Package loadbalance provides strategies for spreading invocations across
// multiple provider endpoints.
//
// Three strategies are implemented:
//   - RoundRobin:      stateless providers with equal capacity
//   - WeightedRandom:  heterogeneous providers
//   - ConsistentHash:  affinity keyed on service.method
package loadbalance

// Endpoint is one provider address a client pool may dial.
type Endpoint struct {
	Addr   string // host:port
	Weight int    // relative capacity, used by WeightedRandom
}

// Balancer selects a provider endpoint per invocation. Pick is called on
// every call and must be goroutine-safe.
type Balancer interface {
	Pick(endpoints []Endpoint) (*Endpoint, error)
	Name() string
}

// KeyBalancer is the affinity variant: the pick depends on a request key.
// Pools pass "service.method" so a method sticks to one provider.
type KeyBalancer interface {
	PickKey(key string, endpoints []Endpoint) (*Endpoint, error)
}
