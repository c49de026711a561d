// Package randompool wraps a seeded pseudo-random source behind the small
// interface the rest of the simulation needs: a uniform float, a uniform
// integer, a Bernoulli trial, and a lognormal draw. Nothing upstream of this
// package should ever touch math/rand or golang.org/x/exp/rand directly.
package randompool

import (
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pool is a seeded, goroutine-safe source of randomness. The simulation's
// parallel per-tick agent advance calls into a single shared Pool from many
// goroutines, so every method takes the internal lock; determinism under
// concurrent use is not guaranteed (draws interleave in whatever order
// goroutines happen to run), only safety from data races.
type Pool struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Pool seeded for reproducible single-threaded runs.
func New(seed uint64) *Pool {
	return &Pool{rng: rand.New(rand.NewSource(seed))}
}

// Get returns a uniform float32 in [0,1).
func (p *Pool) Get() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float32(p.rng.Float64())
}

// GetInt returns a uniform 32-bit unsigned integer.
func (p *Pool) GetInt() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Uint32()
}

// Intn returns a uniform integer in [0,n). Panics if n <= 0, same as
// math/rand.
func (p *Pool) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// Chance reports whether a Bernoulli(prob) trial succeeded. prob is clamped
// to [0,1] before the draw.
func (p *Pool) Chance(prob float64) bool {
	if prob <= 0 {
		return false
	}
	if prob >= 1 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < prob
}

// Lognormal draws from a lognormal distribution parameterised by the mean
// and sigma of the underlying normal distribution, via gonum's distuv.
func (p *Pool) Lognormal(mean, sigma float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := distuv.LogNormal{Mu: mean, Sigma: sigma, Src: p.rng}
	return d.Rand()
}
