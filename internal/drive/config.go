// Package drive implements the differential-drive wheel controller and its
// dead-reckoning odometry estimator.
package drive

import (
	"errors"
	"fmt"

	"github.com/banshee-data/sensorsim/internal/monitoring"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid drive config")

// minDimension is the smallest wheel radius or half-separation accepted.
const minDimension = 1e-6

var opsf = monitoring.Component("drive")

// Config describes the drive geometry and odometry output. Distances are
// centimetres (simulation units).
type Config struct {
	WheelRadius         float64
	WheelSeparationHalf float64
	MaxForce            float64

	WithNoise           bool
	PositionNoiseStdDev float64 // cm/s, applied to each wheel speed
	NoiseSeed           uint64

	FrameID      string
	ChildFrameID string
}

// DefaultConfig returns a small indoor robot.
func DefaultConfig() Config {
	return Config{
		WheelRadius:         5,
		WheelSeparationHalf: 15,
		MaxForce:            1000,
		WithNoise:           false,
		PositionNoiseStdDev: 0.1,
		FrameID:             "odom",
		ChildFrameID:        "base_footprint",
	}
}

// Validate rejects a degenerate wheel separation. A too-small wheel radius
// is not an error; NewDifferentialDrive resets it.
func (c Config) Validate() error {
	if !(c.WheelSeparationHalf > minDimension) {
		return fmt.Errorf("%w: wheel_separation_half must exceed %g, got %g",
			ErrInvalidConfig, minDimension, c.WheelSeparationHalf)
	}
	if c.PositionNoiseStdDev < 0 {
		return fmt.Errorf("%w: position_noise_stddev must be non-negative, got %g",
			ErrInvalidConfig, c.PositionNoiseStdDev)
	}
	if c.MaxForce < 0 {
		return fmt.Errorf("%w: max_force must be non-negative, got %g", ErrInvalidConfig, c.MaxForce)
	}
	return nil
}
