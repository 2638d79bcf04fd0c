package loadbalance

import (
	"testing"
)

var endpoints = []Endpoint{
	{Addr: "127.0.0.1:8001", Weight: 10},
	{Addr: "127.0.0.1:8002", Weight: 5},
	{Addr: "127.0.0.1:8003", Weight: 1},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobin{}
	counts := make(map[string]int)
	for i := 0; i < 9; i++ {
		ep, err := b.Pick(endpoints)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		counts[ep.Addr]++
	}
	for _, e := range endpoints {
		if counts[e.Addr] != 3 {
			t.Errorf("uneven distribution: %v", counts)
		}
	}

	if _, err := b.Pick(nil); err == nil {
		t.Error("expected error for empty endpoint list")
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandom{}
	valid := map[string]bool{}
	for _, e := range endpoints {
		valid[e.Addr] = true
	}
	for i := 0; i < 100; i++ {
		ep, err := b.Pick(endpoints)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if !valid[ep.Addr] {
			t.Fatalf("picked unknown endpoint %q", ep.Addr)
		}
	}

	// zero weights count as 1 instead of breaking the selection
	unweighted := []Endpoint{{Addr: "a"}, {Addr: "b"}}
	if _, err := b.Pick(unweighted); err != nil {
		t.Errorf("Pick with zero weights failed: %v", err)
	}

	if _, err := b.Pick(nil); err == nil {
		t.Error("expected error for empty endpoint list")
	}
}

func TestConsistentHashStability(t *testing.T) {
	b := NewConsistentHash()
	first, err := b.PickKey("calc.exp", endpoints)
	if err != nil {
		t.Fatalf("PickKey failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		ep, err := b.PickKey("calc.exp", endpoints)
		if err != nil {
			t.Fatalf("PickKey failed: %v", err)
		}
		if ep.Addr != first.Addr {
			t.Fatalf("key moved: %q then %q", first.Addr, ep.Addr)
		}
	}

	if _, err := b.PickKey("calc.exp", nil); err == nil {
		t.Error("expected error for empty endpoint list")
	}
}

// ConsistentHash must satisfy both interfaces: Balancer for plain pools and
// KeyBalancer for key-aware ones.
func TestConsistentHashIsBalancer(t *testing.T) {
	var b Balancer = NewConsistentHash()

	ep, err := b.Pick(endpoints)
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := b.Pick(endpoints)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if again.Addr != ep.Addr {
			t.Fatalf("keyless pick moved: %q then %q", ep.Addr, again.Addr)
		}
	}
	if b.Name() != "ConsistentHash" {
		t.Errorf("Name: got %q", b.Name())
	}

	if _, ok := b.(KeyBalancer); !ok {
		t.Error("ConsistentHash should satisfy KeyBalancer")
	}

	if _, err := b.Pick(nil); err == nil {
		t.Error("expected error for empty endpoint list")
	}
}

func TestConsistentHashRebuild(t *testing.T) {
	b := NewConsistentHash()
	if _, err := b.PickKey("k", endpoints[:1]); err != nil {
		t.Fatal(err)
	}
	// the only endpoint left is the only possible answer after a rebuild
	ep, err := b.PickKey("k", endpoints[2:])
	if err != nil {
		t.Fatal(err)
	}
	if ep.Addr != endpoints[2].Addr {
		t.Errorf("got %q, want %q", ep.Addr, endpoints[2].Addr)
	}
}
