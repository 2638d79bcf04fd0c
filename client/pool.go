package client

import (
	"sync"

	"dubbo-go/loadbalance"
	"dubbo-go/message"
)

// Pool spreads invocations across several provider endpoints. Connections
// are created lazily on first use and shared afterwards; per-connection
// ordering still holds because each Client serialises its own calls.
type Pool struct {
	endpoints []loadbalance.Endpoint
	balancer  loadbalance.Balancer
	opts      Options

	mu      sync.Mutex
	clients map[string]*Client
}

// NewPool builds a pool over the endpoints with the given balancer.
func NewPool(endpoints []loadbalance.Endpoint, balancer loadbalance.Balancer, opts Options) *Pool {
	return &Pool{
		endpoints: endpoints,
		balancer:  balancer,
		opts:      opts,
		clients:   make(map[string]*Client),
	}
}

// Invoke picks an endpoint and performs the call there. A KeyBalancer gets
// "service.method" as the affinity key.
func (p *Pool) Invoke(inv Invocation) (*message.Response, error) {
	var ep *loadbalance.Endpoint
	var err error
	if kb, ok := p.balancer.(loadbalance.KeyBalancer); ok {
		ep, err = kb.PickKey(inv.ServiceName+"."+inv.MethodName, p.endpoints)
	} else {
		ep, err = p.balancer.Pick(p.endpoints)
	}
	if err != nil {
		return nil, err
	}
	c, err := p.client(ep.Addr)
	if err != nil {
		return nil, err
	}
	return c.Invoke(inv)
}

// client returns the shared connection for addr, dialing on first use.
func (p *Pool) client(addr string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[addr]; ok {
		return c, nil
	}
	c, err := DialOptions(addr, p.opts)
	if err != nil {
		return nil, err
	}
	p.clients[addr] = c
	return c, nil
}

// Close closes every connection the pool opened.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, c := range p.clients {
		c.Close()
		delete(p.clients, addr)
	}
}
