// Package sim is the scheduler that drives a session: a fixed tick for the
// drive and async trace collection, and a fixed-frequency scan trigger.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/drive"
	"github.com/banshee-data/sensorsim/internal/frames"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/banshee-data/sensorsim/internal/rosmsg"
	"github.com/banshee-data/sensorsim/internal/scene"
	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
	"github.com/banshee-data/sensorsim/internal/simclock"
)

var logf = monitoring.Component("sim")

// Runner wires one lidar and one drive to a clock. Lidar and Time are
// required; Drive and World are optional.
type Runner struct {
	Lidar *lidar.Sensor
	Drive *drive.DifferentialDrive
	// World is stepped every tick so asynchronous traces complete.
	World *scene.World
	Time  *simclock.SimTime

	// Mount is the sensor pose in the robot base frame (sim convention).
	Mount frames.Transform
	// TickInterval is the scheduler period. Zero means 10ms.
	TickInterval time.Duration

	// OnScan receives every scan record after a cycle.
	OnScan func(rosmsg.LaserScan)
	// OnOdometry receives the odometry record after every tick.
	OnOdometry func(rosmsg.Odometry)

	mu      sync.Mutex
	scanAcc time.Duration
	stats   Stats
}

// Stats counts scheduler activity.
type Stats struct {
	Ticks int
	Scans int
}

// Stats returns the counters so far.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Runner) tickInterval() time.Duration {
	if r.TickInterval <= 0 {
		return 10 * time.Millisecond
	}
	return r.TickInterval
}

func (r *Runner) validate() error {
	if r.Lidar == nil {
		return errors.New("sim: runner has no lidar")
	}
	if r.Time == nil {
		return errors.New("sim: runner has no time source")
	}
	if r.Mount.Rotation == (quat.Number{}) {
		r.Mount.Rotation = frames.Identity
	}
	if !r.Lidar.Running() {
		r.Lidar.Run()
	}
	return nil
}

// basePose returns the robot base pose from odometry, or the origin.
func (r *Runner) basePose() (r3.Vec, float64) {
	if r.Drive == nil || r.Drive.Odometry() == nil {
		return r3.Vec{}, 0
	}
	s := r.Drive.Odometry().State()
	return r3.Vec{X: s.X, Y: s.Y}, s.Theta
}

// sensorPose composes the base pose with the mount offset.
func (r *Runner) sensorPose() (r3.Vec, quat.Number) {
	pos, yaw := r.basePose()
	base := frames.YawQuat(yaw)
	offset := r3.Rotation(base).Rotate(r.Mount.Translation)
	return r3.Add(pos, offset), quat.Mul(base, r.Mount.Rotation)
}

// tick advances the drive, the world and async collection by dt.
func (r *Runner) tick(ctx context.Context, dt time.Duration) error {
	if r.Drive != nil {
		r.Drive.Tick(dt.Seconds())
	}
	r.Lidar.SetPose(r.sensorPose())
	if r.World != nil {
		if err := r.World.Step(ctx); err != nil {
			return fmt.Errorf("world step: %w", err)
		}
	}
	r.Lidar.Tick()

	r.mu.Lock()
	r.stats.Ticks++
	r.mu.Unlock()

	if r.OnOdometry != nil && r.Drive != nil && r.Drive.Odometry() != nil {
		r.OnOdometry(r.Drive.Odometry().Record(r.Time.Seconds()))
	}
	return nil
}

// scan runs one lidar cycle and publishes the record.
func (r *Runner) scan(ctx context.Context) error {
	if err := r.Lidar.Scan(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.stats.Scans++
	r.mu.Unlock()
	if r.OnScan != nil {
		r.OnScan(r.Lidar.ScanRecord())
	}
	return nil
}

// Step advances the simulation by dt without a clock: one tick, then as
// many scan cycles as the accumulated time allows.
func (r *Runner) Step(ctx context.Context, dt time.Duration) error {
	if err := r.validate(); err != nil {
		return err
	}
	if err := r.tick(ctx, dt); err != nil {
		return err
	}
	period := r.Lidar.Config().PeriodDuration()
	r.scanAcc += dt
	for r.scanAcc >= period {
		r.scanAcc -= period
		if err := r.scan(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the simulation from the clock's tickers until ctx is done.
// It returns nil on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.validate(); err != nil {
		return err
	}
	clock := r.Time.Clock()
	tick := clock.NewTicker(r.tickInterval())
	defer tick.Stop()
	scan := clock.NewTicker(r.Lidar.Config().PeriodDuration())
	defer scan.Stop()

	logf("runner started: tick %s, scan %s", r.tickInterval(), r.Lidar.Config().PeriodDuration())
	last := clock.Now()
	for {
		select {
		case <-ctx.Done():
			s := r.Stats()
			logf("runner stopped after %d ticks, %d scans", s.Ticks, s.Scans)
			return nil
		case now := <-tick.C():
			dt := now.Sub(last)
			last = now
			if err := r.tick(ctx, dt); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case <-scan.C():
			if err := r.scan(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// TransformRecords returns the odom→base and base→sensor transforms
// stamped at the current simulation time.
func (r *Runner) TransformRecords() []rosmsg.TransformStamped {
	stamp := frames.SecondsToStamp(r.Time.Seconds())
	odomFrame, baseFrame := "odom", "base_footprint"
	if r.Drive != nil {
		cfg := r.Drive.Config()
		odomFrame, baseFrame = cfg.FrameID, cfg.ChildFrameID
	}
	pos, yaw := r.basePose()
	mount := r.Mount
	if mount.Rotation == (quat.Number{}) {
		mount.Rotation = frames.Identity
	}
	return []rosmsg.TransformStamped{
		frames.TransformStampedSimToROS(
			rosmsg.Header{Stamp: stamp, FrameID: odomFrame}, baseFrame,
			frames.Transform{Translation: pos, Rotation: frames.YawQuat(yaw)}),
		frames.TransformStampedSimToROS(
			rosmsg.Header{Stamp: stamp, FrameID: baseFrame}, r.Lidar.Config().FrameID,
			mount),
	}
}
