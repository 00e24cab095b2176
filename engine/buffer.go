package engine

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Sample is one training example: the state features, the search policy
// observed there, the bootstrapped value target, and a sampling weight
// (higher for states closer to the goal).
type Sample struct {
	Features []float64
	Policy   []float64
	Value    float64
	Weight   float64
}

// Buffer is a fixed-capacity replay buffer. Once full, new samples overwrite
// the oldest ones.
type Buffer struct {
	capacity int
	samples  []Sample
	next     int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		panic("buffer requires a positive capacity")
	}
	return &Buffer{
		capacity: capacity,
		samples:  make([]Sample, 0, capacity),
	}
}

func (b *Buffer) Len() int {
	return len(b.samples)
}

func (b *Buffer) Add(s Sample) {
	if len(b.samples) < b.capacity {
		b.samples = append(b.samples, s)
		return
	}
	b.samples[b.next] = s
	b.next = (b.next + 1) % b.capacity
}

// Draw samples n examples with replacement, weighted by Sample.Weight.
// Zero or negative total weight falls back to uniform sampling.
func (b *Buffer) Draw(n int, rng *rand.Rand) ([]Sample, error) {
	if n <= 0 {
		return nil, fmt.Errorf("draw size must be positive, got %d", n)
	}
	if len(b.samples) < n {
		return nil, fmt.Errorf("buffer holds %d samples, cannot draw %d", len(b.samples), n)
	}

	total := 0.0
	for _, s := range b.samples {
		if s.Weight > 0 {
			total += s.Weight
		}
	}

	drawn := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		if total <= 0 {
			drawn = append(drawn, b.samples[rng.Intn(len(b.samples))])
			continue
		}
		target := rng.Float64() * total
		cumulative := 0.0
		picked := len(b.samples) - 1
		for j, s := range b.samples {
			if s.Weight > 0 {
				cumulative += s.Weight
			}
			if target < cumulative {
				picked = j
				break
			}
		}
		drawn = append(drawn, b.samples[picked])
	}
	return drawn, nil
}
