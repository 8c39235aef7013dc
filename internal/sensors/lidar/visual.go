package lidar

import (
	"image/color"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/frames"
	"github.com/banshee-data/sensorsim/internal/scene"
)

// DebugSink receives one coloured point per sample when ray drawing is
// enabled. Implementations must not block.
type DebugSink interface {
	DrawPoint(p r3.Vec, c color.RGBA, size float64, lifetime time.Duration)
}

const (
	hitPointSize  = 10
	missPointSize = 2.5
)

var (
	// ColorLow is drawn at IntensityMin, ColorHigh at IntensityMax.
	ColorLow  = color.RGBA{R: 255, A: 255}
	ColorHigh = color.RGBA{G: 255, A: 255}
	ColorMiss = color.RGBA{B: 255, A: 255}
)

// InverseSquare attenuates intensity by the square of the distance in
// metres beyond one metre.
func InverseSquare(intensity, distanceMetres float64) float64 {
	if distanceMetres <= 1 {
		return intensity
	}
	return intensity / (distanceMetres * distanceMetres)
}

// ColorFromIntensity maps intensity linearly between ColorLow and
// ColorHigh over [IntensityMin, IntensityMax].
func (c Config) ColorFromIntensity(intensity float64) color.RGBA {
	span := c.IntensityMax - c.IntensityMin
	t := 0.0
	if span > 0 {
		t = (intensity - c.IntensityMin) / span
	}
	if math.IsNaN(t) {
		t = 0
	}
	return lerpColor(ColorLow, ColorHigh, math.Max(0, math.Min(1, t)))
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// debugColor picks the colour of a hit point for the debug sink.
func (s *Sensor) debugColor(h scene.Hit) color.RGBA {
	cfg := s.cfg
	dist := cfg.rangeCm(h) * frames.MetresPerCentimetre
	switch h.Material {
	case scene.MaterialReflective:
		return cfg.ColorFromIntensity(s.deps.IntensityFromDist(cfg.IntensityReflective, dist))
	case scene.MaterialPartiallyReflective:
		// Alignment falls off with the 32nd power here, not linearly as in Intensity.
		alignment := math.Max(0, r3.Dot(h.Normal, r3.Scale(-1, h.Direction())))
		in := math.Pow(alignment, 32)*(cfg.IntensityReflective-cfg.IntensityNonReflective) + cfg.IntensityNonReflective
		return cfg.ColorFromIntensity(s.deps.IntensityFromDist(in, dist))
	default:
		return cfg.ColorFromIntensity(s.deps.IntensityFromDist(cfg.IntensityNonReflective, dist))
	}
}

// draw emits the current hits to the debug sink. Caller holds s.mu.
func (s *Sensor) draw() {
	if s.deps.Sink == nil || !s.cfg.ShowLidarRays {
		return
	}
	lifetime := time.Duration(s.dt * float64(time.Second))
	for _, h := range s.hits {
		if !h.IsMiss() {
			s.deps.Sink.DrawPoint(h.ImpactPoint, s.debugColor(h), hitPointSize, lifetime)
		} else if s.cfg.ShowLidarRayMisses {
			s.deps.Sink.DrawPoint(h.TraceEnd, ColorMiss, missPointSize, lifetime)
		}
	}
}
