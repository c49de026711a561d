package randompool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBounds(t *testing.T) {
	p := New(42)
	for i := 0; i < 10_000; i++ {
		v := p.Get()
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestChanceClamps(t *testing.T) {
	p := New(1)
	assert.False(t, p.Chance(0))
	assert.False(t, p.Chance(-1))
	assert.True(t, p.Chance(1))
	assert.True(t, p.Chance(2))
}

func TestChanceDistribution(t *testing.T) {
	p := New(7)
	hits := 0
	const trials = 50_000
	for i := 0; i < trials; i++ {
		if p.Chance(0.3) {
			hits++
		}
	}
	ratio := float64(hits) / float64(trials)
	assert.InDelta(t, 0.3, ratio, 0.02)
}

func TestSeededReproducibility(t *testing.T) {
	a := New(99)
	b := New(99)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.GetInt(), b.GetInt())
	}
}

func TestLognormalPositive(t *testing.T) {
	p := New(3)
	for i := 0; i < 1000; i++ {
		v := p.Lognormal(1.0, 0.4)
		assert.Greater(t, v, 0.0)
	}
}

func TestIntnRange(t *testing.T) {
	p := New(5)
	for i := 0; i < 1000; i++ {
		v := p.Intn(10)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}
}
