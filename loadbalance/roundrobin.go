package loadbalance

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// RoundRobin distributes calls evenly across endpoints in order, using an
// atomic counter for lock-free selection.
type RoundRobin struct {
	counter int64
}

func (b *RoundRobin) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("loadbalance: no endpoints available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(endpoints))
	return &endpoints[index], nil
}

func (b *RoundRobin) Name() string {
	return "RoundRobin"
}
