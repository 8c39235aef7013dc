package lidar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/frames"
	"github.com/banshee-data/sensorsim/internal/noise"
	"github.com/banshee-data/sensorsim/internal/rosmsg"
	"github.com/banshee-data/sensorsim/internal/scene"
)

// Intensity resolves the noiseless intensity of a hit from its material.
// Misses and hits without a physical material return NaN.
func (c Config) Intensity(h scene.Hit) float64 {
	if h.IsMiss() {
		return math.NaN()
	}
	switch h.Material {
	case scene.MaterialReflective:
		return c.IntensityReflective
	case scene.MaterialNonReflective:
		return c.IntensityNonReflective
	case scene.MaterialPartiallyReflective:
		return c.partialIntensity(h)
	default:
		return math.NaN()
	}
}

// partialIntensity interpolates between the non-reflective and reflective
// values by the alignment of the surface normal with the reversed ray.
func (c Config) partialIntensity(h scene.Hit) float64 {
	alignment := r3.Dot(h.Normal, r3.Scale(-1, h.Direction()))
	v := c.IntensityNonReflective + (c.IntensityReflective-c.IntensityNonReflective)*alignment
	return math.Max(c.IntensityNonReflective, math.Min(c.IntensityReflective, v))
}

// rangeCm is the published range of a hit in simulation units. A hit
// distance is measured from the MinRange start point; misses report
// MinRange.
func (c Config) rangeCm(h scene.Hit) float64 {
	if h.Distance > 0 {
		return c.MinRange + h.Distance
	}
	return c.MinRange
}

// ScanRecord assembles the outgoing laser-scan message from the most
// recent cycle. Samples are emitted in reverse acquisition order.
func (s *Sensor) ScanRecord() rosmsg.LaserScan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.cfg
	n := cfg.NSamplesPerScan
	rec := rosmsg.LaserScan{
		Header: rosmsg.Header{
			Stamp:   frames.SecondsToStamp(s.lastScan),
			FrameID: cfg.FrameID,
		},
		AngleMin:       float32(s.MinAngleRadians()),
		AngleMax:       float32(s.MaxAngleRadians()),
		AngleIncrement: float32(cfg.DHAngle() * math.Pi / 180),
		TimeIncrement:  float32(s.dt / float64(n)),
		ScanTime:       float32(s.dt),
		RangeMin:       float32(cfg.MinRange * frames.MetresPerCentimetre),
		RangeMax:       float32(cfg.MaxRange * frames.MetresPerCentimetre),
	}
	if !s.running {
		return rec
	}
	if len(s.hits) != n || len(s.handles) != n {
		panic(fmt.Sprintf("lidar: buffer length mismatch: %d hits, %d handles, %d samples",
			len(s.hits), len(s.handles), n))
	}

	gate := noise.Gate(cfg.WithNoise)
	rec.Ranges = make([]float32, n)
	rec.Intensities = make([]float32, n)
	for i := 0; i < n; i++ {
		h := s.hits[n-1-i]
		rec.Ranges[i] = float32(cfg.rangeCm(h) * frames.MetresPerCentimetre)
		scale := 1 + gate*s.intensityNoise.Sample()
		rec.Intensities[i] = float32(cfg.Intensity(h) * scale)
	}
	return rec
}
