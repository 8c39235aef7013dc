package drive

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// WheelJoint is a powered wheel constraint. Targets are in revolutions per
// second about the joint's twist axis.
type WheelJoint interface {
	SetAngularVelocityTarget(target r3.Vec)
	SetAngularDriveParams(spring, damping, forceLimit float64)
}

// Wheel is an in-memory WheelJoint that records the last command.
type Wheel struct {
	mu         sync.Mutex
	target     r3.Vec
	forceLimit float64
}

// SetAngularVelocityTarget implements WheelJoint.
func (w *Wheel) SetAngularVelocityTarget(target r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = target
}

// SetAngularDriveParams implements WheelJoint.
func (w *Wheel) SetAngularDriveParams(_, _, forceLimit float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forceLimit = forceLimit
}

// Target returns the last angular velocity target.
func (w *Wheel) Target() r3.Vec {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// ForceLimit returns the last drive force limit.
func (w *Wheel) ForceLimit() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.forceLimit
}

// DifferentialDrive converts body velocity commands into wheel targets and
// feeds the same commands to an odometry estimator.
type DifferentialDrive struct {
	cfg       Config
	perimeter float64
	left      WheelJoint
	right     WheelJoint
	odom      *Estimator

	velocity        r3.Vec // cm/s, body frame
	angularVelocity r3.Vec // deg/s, body frame
}

// NewDifferentialDrive builds a drive. odom may be nil, in which case
// odometry updates are skipped. A wheel radius at or below 1e-6 is reset
// to 1.
func NewDifferentialDrive(cfg Config, odom *Estimator) (*DifferentialDrive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.WheelRadius <= minDimension {
		opsf("wheel radius %g is too small, reset to 1.0", cfg.WheelRadius)
		cfg.WheelRadius = 1
	}
	return &DifferentialDrive{
		cfg:       cfg,
		perimeter: cfg.WheelRadius * 2 * math.Pi,
		odom:      odom,
	}, nil
}

// Config returns the effective configuration, with any radius reset
// applied.
func (d *DifferentialDrive) Config() Config { return d.cfg }

// Perimeter is the wheel circumference in cm.
func (d *DifferentialDrive) Perimeter() float64 { return d.perimeter }

// Odometry returns the attached estimator, possibly nil.
func (d *DifferentialDrive) Odometry() *Estimator { return d.odom }

// SetWheels attaches the wheel joints. A nil joint is logged and leaves
// the current one in place.
func (d *DifferentialDrive) SetWheels(left, right WheelJoint) {
	set := func(cur *WheelJoint, side string, w WheelJoint) {
		if w == nil {
			opsf("%s wheel joint is invalid", side)
			return
		}
		*cur = w
		w.SetAngularDriveParams(d.cfg.MaxForce, d.cfg.MaxForce, d.cfg.MaxForce)
	}
	set(&d.left, "left", left)
	set(&d.right, "right", right)
}

// SetVelocity sets the commanded body velocity. linear is cm/s and
// angular is deg/s; only linear.X and angular.Z are used.
func (d *DifferentialDrive) SetVelocity(linear, angular r3.Vec) {
	d.velocity = linear
	d.angularVelocity = angular
}

// wheelSpeeds returns the left and right surface speeds in cm/s.
func (d *DifferentialDrive) wheelSpeeds() (float64, float64) {
	omega := d.angularVelocity.Z * math.Pi / 180
	L := d.cfg.WheelSeparationHalf
	return d.velocity.X + omega*L, d.velocity.X - omega*L
}

// UpdateMovement pushes the current command to the wheels. It reports
// false, and logs, when either wheel is missing.
func (d *DifferentialDrive) UpdateMovement(dt float64) bool {
	if d.left == nil || d.right == nil {
		opsf("wheel joints are not set")
		return false
	}
	vl, vr := d.wheelSpeeds()
	d.left.SetAngularVelocityTarget(r3.Vec{X: -vl / d.perimeter})
	d.right.SetAngularVelocityTarget(r3.Vec{X: -vr / d.perimeter})
	d.left.SetAngularDriveParams(d.cfg.MaxForce, d.cfg.MaxForce, d.cfg.MaxForce)
	d.right.SetAngularDriveParams(d.cfg.MaxForce, d.cfg.MaxForce, d.cfg.MaxForce)
	return true
}

// UpdateOdom advances the estimator with the current command. It reports
// false when no estimator is attached or dt <= 0.
func (d *DifferentialDrive) UpdateOdom(dt float64) bool {
	if d.odom == nil {
		return false
	}
	return d.odom.Update(dt, d.velocity.X, d.angularVelocity.Z*math.Pi/180)
}

// Tick runs one scheduler step: wheel commands then odometry.
func (d *DifferentialDrive) Tick(dt float64) {
	if !(dt > 0) {
		return
	}
	d.UpdateMovement(dt)
	d.UpdateOdom(dt)
}
