package loadbalance

import (
	"math/rand"

	"github.com/pkg/errors"
)

// WeightedRandom selects endpoints proportionally to their weight: an
// endpoint with weight 10 sees roughly twice the traffic of one with 5.
// Endpoints without a weight count as 1.
type WeightedRandom struct{}

func (b *WeightedRandom) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("loadbalance: no endpoints available")
	}
	totalWeight := 0
	for _, e := range endpoints {
		totalWeight += max(e.Weight, 1)
	}
	r := rand.Intn(totalWeight)
	for i := range endpoints {
		r -= max(endpoints[i].Weight, 1)
		if r < 0 {
			return &endpoints[i], nil
		}
	}
	return nil, errors.New("loadbalance: weighted selection failed")
}

func (b *WeightedRandom) Name() string {
	return "WeightedRandom"
}
