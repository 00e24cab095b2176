package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func sampleWithWeight(w float64) Sample {
	return Sample{Features: []float64{w}, Policy: []float64{1}, Value: 0, Weight: w}
}

func TestBufferEvictsOldestWhenFull(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Add(sampleWithWeight(float64(i)))
	}

	require.Equal(t, 3, b.Len())
	weights := map[float64]bool{}
	for _, s := range b.samples {
		weights[s.Weight] = true
	}
	require.Equal(t, map[float64]bool{3: true, 4: true, 5: true}, weights,
		"the two oldest samples should have been overwritten")
}

func TestDrawErrors(t *testing.T) {
	b := NewBuffer(4)
	rng := rand.New(rand.NewSource(1))

	_, err := b.Draw(0, rng)
	require.ErrorContains(t, err, "draw size must be positive")

	b.Add(sampleWithWeight(1))
	_, err = b.Draw(2, rng)
	require.ErrorContains(t, err, "cannot draw 2")
}

func TestDrawFollowsWeights(t *testing.T) {
	b := NewBuffer(4)
	b.Add(sampleWithWeight(1))
	b.Add(Sample{Features: []float64{0}, Weight: 0})
	b.Add(Sample{Features: []float64{0}, Weight: 0})

	drawn, err := b.Draw(3, rand.New(rand.NewSource(2)))

	require.NoError(t, err)
	for _, s := range drawn {
		require.Equal(t, 1.0, s.Weight, "only the weighted sample can be drawn")
	}
}

func TestDrawUniformFallbackOnZeroWeights(t *testing.T) {
	b := NewBuffer(4)
	b.Add(Sample{Weight: 0})
	b.Add(Sample{Weight: 0})

	drawn, err := b.Draw(2, rand.New(rand.NewSource(3)))

	require.NoError(t, err)
	require.Len(t, drawn, 2)
}
