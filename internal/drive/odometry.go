package drive

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/frames"
	"github.com/banshee-data/sensorsim/internal/noise"
	"github.com/banshee-data/sensorsim/internal/rosmsg"
)

const (
	observableVariance   = 0.01
	unobservableVariance = 1e12
)

// covariance is the fixed diagonal over (x, y, z, roll, pitch, yaw).
var covariance = func() rosmsg.Covariance {
	d := mat.NewDiagDense(6, []float64{
		observableVariance, observableVariance, unobservableVariance,
		unobservableVariance, unobservableVariance, observableVariance,
	})
	var c rosmsg.Covariance
	copy(c[:], mat.DenseCopyOf(d).RawMatrix().Data)
	return c
}()

// State is the integrated pose and the last twist in simulation units.
type State struct {
	X, Y    float64 // cm
	Theta   float64 // rad
	Linear  float64 // cm/s
	Angular float64 // rad/s
}

// Estimator integrates commanded body velocities into a planar pose using
// midpoint heading integration. It is driven by a single scheduler and is
// not safe for concurrent use.
type Estimator struct {
	cfg         Config
	wheelNoise  *noise.Gaussian
	initialized bool
	state       State
}

// NewEstimator validates cfg and returns an uninitialised estimator.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{
		cfg:        cfg,
		wheelNoise: noise.NewGaussian(0, cfg.PositionNoiseStdDev, cfg.NoiseSeed),
	}, nil
}

// Initialized reports whether the first update has happened.
func (e *Estimator) Initialized() bool { return e.initialized }

// Reset returns the estimator to the uninitialised state.
func (e *Estimator) Reset() {
	e.initialized = false
	e.state = State{}
}

// Update advances the pose by dt seconds given forward velocity v (cm/s)
// and angular velocity omega (rad/s). It reports whether the state changed;
// dt <= 0 is a no-op.
func (e *Estimator) Update(dt, v, omega float64) bool {
	if !(dt > 0) {
		return false
	}
	if !e.initialized {
		e.initialized = true
		e.state = State{}
	}

	L := e.cfg.WheelSeparationHalf
	gate := noise.Gate(e.cfg.WithNoise)
	vl := v + omega*L
	vr := v - omega*L
	sl := (vl + gate*e.wheelNoise.Sample()) * dt
	sr := (vr + gate*e.wheelNoise.Sample()) * dt

	sum := sl + sr
	diff := sr - sl
	heading := e.state.Theta + diff/(4*L)
	dx := 0.5 * sum * math.Cos(heading)
	dy := 0.5 * sum * math.Sin(heading)
	dtheta := -diff / (2 * L)

	e.state.X += dx
	e.state.Y += dy
	e.state.Theta += dtheta
	e.state.Linear = math.Hypot(dx, dy) / dt
	e.state.Angular = dtheta / dt
	return true
}

// State returns the current estimate.
func (e *Estimator) State() State { return e.state }

// SimRecord returns the odometry record in the simulation convention.
func (e *Estimator) SimRecord(now float64) rosmsg.Odometry {
	s := e.state
	return rosmsg.Odometry{
		Header: rosmsg.Header{
			Stamp:   frames.SecondsToStamp(now),
			FrameID: e.cfg.FrameID,
		},
		ChildFrameID: e.cfg.ChildFrameID,
		Pose: rosmsg.PoseWithCovariance{
			Pose: rosmsg.Pose{
				Position:    r3.Vec{X: s.X, Y: s.Y},
				Orientation: frames.YawQuat(s.Theta),
			},
			Covariance: covariance,
		},
		Twist: rosmsg.TwistWithCovariance{
			Twist: rosmsg.Twist{
				Linear:  r3.Vec{X: s.Linear},
				Angular: r3.Vec{Z: s.Angular},
			},
			Covariance: covariance,
		},
	}
}

// Record returns the odometry record stamped at now (seconds) in the
// robotics convention.
func (e *Estimator) Record(now float64) rosmsg.Odometry {
	return frames.OdomSimToROS(e.SimRecord(now))
}
