package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ConsistentHash maps keys to endpoints through a hash ring, so the same
// key keeps hitting the same endpoint while the endpoint set is stable.
//
// Each endpoint is placed on the ring as 100 virtual nodes hashed from
// "{addr}#{i}"; without them a handful of endpoints clusters on the ring
// and the load skews.
type ConsistentHash struct {
	mu        sync.Mutex
	replicas  int
	ring      []uint32
	nodes     map[uint32]Endpoint
	signature string // addresses the current ring was built from
}

// NewConsistentHash creates a ring with 100 virtual nodes per endpoint.
func NewConsistentHash() *ConsistentHash {
	return &ConsistentHash{replicas: 100, nodes: make(map[uint32]Endpoint)}
}

// Pick satisfies Balancer for pools that hand ConsistentHash no request key;
// every call hashes the same empty key, so it degenerates to a sticky choice
// that only moves when the endpoint set changes.
func (b *ConsistentHash) Pick(endpoints []Endpoint) (*Endpoint, error) {
	return b.PickKey("", endpoints)
}

// PickKey finds the endpoint owning the key: hash the key, binary-search the
// first ring node at or above it, wrapping to the start of the ring.
func (b *ConsistentHash) PickKey(key string, endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("loadbalance: no endpoints available")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rebuild(endpoints)

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	ep := b.nodes[b.ring[idx]]
	return &ep, nil
}

func (b *ConsistentHash) Name() string {
	return "ConsistentHash"
}

// rebuild regenerates the ring when the endpoint set changed.
func (b *ConsistentHash) rebuild(endpoints []Endpoint) {
	addrs := make([]string, len(endpoints))
	for i, e := range endpoints {
		addrs[i] = e.Addr
	}
	sort.Strings(addrs)
	signature := strings.Join(addrs, ",")
	if signature == b.signature {
		return
	}

	b.signature = signature
	b.ring = b.ring[:0]
	clear(b.nodes)
	for _, e := range endpoints {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", e.Addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = e
		}
	}
	sort.Slice(b.ring, func(i, j int) bool { return b.ring[i] < b.ring[j] })
}
