// Package noise provides the Gaussian process noise shared by the sensor
// and odometry models.
package noise

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian draws samples from N(Mean, StdDev). It is safe for concurrent
// use; parallel scan workers share one generator.
type Gaussian struct {
	mu   sync.Mutex
	dist distuv.Normal
}

// NewGaussian returns a generator seeded from seed. A seed of 0 uses the
// global math/rand/v2 source.
func NewGaussian(mean, stddev float64, seed uint64) *Gaussian {
	var src rand.Source
	if seed != 0 {
		src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return &Gaussian{dist: distuv.Normal{Mu: mean, Sigma: stddev, Src: src}}
}

// Sample returns one draw. A nil generator or a zero standard deviation
// returns the mean (zero for nil).
func (g *Gaussian) Sample() float64 {
	if g == nil {
		return 0
	}
	if g.dist.Sigma == 0 {
		return g.dist.Mu
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dist.Rand()
}

// Vec returns a vector of three independent draws.
func (g *Gaussian) Vec() r3.Vec {
	return r3.Vec{X: g.Sample(), Y: g.Sample(), Z: g.Sample()}
}

// StdDev reports the configured standard deviation.
func (g *Gaussian) StdDev() float64 {
	if g == nil {
		return 0
	}
	return g.dist.Sigma
}

// Gate returns 1 when enabled and 0 otherwise, matching the
// "value + enabled·noise" form used by the models.
func Gate(enabled bool) float64 {
	if enabled {
		return 1
	}
	return 0
}
