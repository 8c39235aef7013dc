package lidar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid lidar config")

// Dispatch selects how a scan cycle issues its ray queries.
type Dispatch string

const (
	// DispatchSync casts every ray in parallel and blocks until all complete.
	DispatchSync Dispatch = "sync"
	// DispatchAsync submits a batch and polls it on every scheduler tick.
	DispatchAsync Dispatch = "async"
)

// Config is the sensor tuning. It is read-only for the duration of a cycle.
// Angles are degrees and distances are centimetres (simulation units).
type Config struct {
	FrameID string

	NSamplesPerScan int
	ScanFrequency   float64 // Hz
	StartAngle      float64 // deg, yaw of sample 0 relative to the sensor
	FOVHorizontal   float64 // deg
	MinRange        float64 // cm
	MaxRange        float64 // cm

	IntensityReflective    float64
	IntensityNonReflective float64
	// IntensityMin and IntensityMax scale debug colours only.
	IntensityMin float64
	IntensityMax float64

	WithNoise            bool
	PositionNoiseStdDev  float64 // cm
	IntensityNoiseStdDev float64 // relative
	NoiseSeed            uint64  // 0 seeds from the global source

	Dispatch Dispatch
	Workers  int // parallel-for width, 0 = GOMAXPROCS

	ShowLidarRays      bool
	ShowLidarRayMisses bool
}

// DefaultConfig returns a 360-sample, 10 Hz planar scanner.
func DefaultConfig() Config {
	return Config{
		FrameID:                "base_scan",
		NSamplesPerScan:        360,
		ScanFrequency:          10,
		StartAngle:             0,
		FOVHorizontal:          360,
		MinRange:               20,
		MaxRange:               1000,
		IntensityReflective:    6000,
		IntensityNonReflective: 1000,
		IntensityMin:           0,
		IntensityMax:           10000,
		WithNoise:              true,
		PositionNoiseStdDev:    0.5,
		IntensityNoiseStdDev:   0.05,
		Dispatch:               DispatchSync,
	}
}

// Validate rejects degenerate geometry. Runtime code assumes a validated
// config.
func (c Config) Validate() error {
	switch {
	case c.NSamplesPerScan <= 0:
		return fmt.Errorf("%w: n_samples_per_scan must be positive, got %d", ErrInvalidConfig, c.NSamplesPerScan)
	case !(c.ScanFrequency > 0):
		return fmt.Errorf("%w: scan_frequency must be positive, got %g", ErrInvalidConfig, c.ScanFrequency)
	case c.PeriodDuration() <= 0:
		return fmt.Errorf("%w: scan_frequency %g Hz is too high for a nanosecond scan period", ErrInvalidConfig, c.ScanFrequency)
	case !(c.FOVHorizontal > 0):
		return fmt.Errorf("%w: fov_horizontal must be positive, got %g", ErrInvalidConfig, c.FOVHorizontal)
	case c.MinRange < 0:
		return fmt.Errorf("%w: min_range must be non-negative, got %g", ErrInvalidConfig, c.MinRange)
	case !(c.MaxRange > c.MinRange):
		return fmt.Errorf("%w: max_range (%g) must exceed min_range (%g)", ErrInvalidConfig, c.MaxRange, c.MinRange)
	case c.IntensityReflective < c.IntensityNonReflective:
		return fmt.Errorf("%w: intensity_reflective (%g) below intensity_non_reflective (%g)",
			ErrInvalidConfig, c.IntensityReflective, c.IntensityNonReflective)
	case c.PositionNoiseStdDev < 0 || c.IntensityNoiseStdDev < 0:
		return fmt.Errorf("%w: noise standard deviations must be non-negative", ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	switch c.Dispatch {
	case DispatchSync, DispatchAsync:
	default:
		return fmt.Errorf("%w: unknown dispatch mode %q", ErrInvalidConfig, c.Dispatch)
	}
	return nil
}

// DHAngle is the angular step between samples in degrees.
func (c Config) DHAngle() float64 {
	return c.FOVHorizontal / float64(c.NSamplesPerScan)
}

// Period is the scan cycle duration in seconds.
func (c Config) Period() float64 {
	return 1 / c.ScanFrequency
}

// PeriodDuration is Period as a time.Duration for schedulers.
func (c Config) PeriodDuration() time.Duration {
	return time.Duration(c.Period() * float64(time.Second))
}
