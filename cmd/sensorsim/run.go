package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/config"
	"github.com/banshee-data/sensorsim/internal/drive"
	"github.com/banshee-data/sensorsim/internal/frames"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/banshee-data/sensorsim/internal/recorder"
	"github.com/banshee-data/sensorsim/internal/rosmsg"
	"github.com/banshee-data/sensorsim/internal/security"
	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
	"github.com/banshee-data/sensorsim/internal/session"
	"github.com/banshee-data/sensorsim/internal/sim"
	"github.com/banshee-data/sensorsim/internal/simclock"
	"github.com/banshee-data/sensorsim/internal/visualiser"
)

var logf = monitoring.Component("sensorsim")

const (
	lidarName = "front"
	driveName = "base"

	// plotPointLimit bounds the debug points kept for the PNG plot.
	plotPointLimit = 50000
)

// options are the resolved command-line settings.
type options struct {
	ConfigPath string
	DBPath     string
	PlotPath   string
	HTMLPath   string

	// Zero values defer to the configuration file.
	Duration time.Duration
	Tick     time.Duration

	Realtime bool
	// CmdVel is the forward command in cm/s, CmdYaw the turn rate in deg/s.
	CmdVel float64
	CmdYaw float64
}

// summary is what a run reports when it finishes.
type summary struct {
	Session   string
	Stats     sim.Stats
	Recorded  int
	Final     drive.State
	LastScan  rosmsg.LaserScan
	Hits      int
	Unknown   int
	SimTime   float64
	Transform []rosmsg.TransformStamped
}

func loadConfig(path string) (*config.SimConfig, error) {
	if path == "" {
		return config.EmptySimConfig(), nil
	}
	return config.LoadSimConfig(path)
}

// run builds the demo scene, drives it for the configured duration and
// writes the requested outputs.
func run(ctx context.Context, opts options) (summary, error) {
	var out summary

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return out, err
	}
	for _, p := range []string{opts.DBPath, opts.PlotPath, opts.HTMLPath} {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p); err != nil {
			return out, err
		}
	}
	duration := cfg.GetDuration()
	if opts.Duration > 0 {
		duration = opts.Duration
	}
	tick := cfg.GetTickInterval()
	if opts.Tick > 0 {
		tick = opts.Tick
	}

	lcfg := cfg.LidarConfig()
	var plotSink *visualiser.PlotSink
	if opts.PlotPath != "" {
		lcfg.ShowLidarRays = true
		plotSink = &visualiser.PlotSink{Title: "sensorsim " + lcfg.FrameID}
		plotSink.Limit = plotPointLimit
	}

	world, err := buildWorld(lcfg.Workers)
	if err != nil {
		return out, err
	}

	var clock simclock.Clock = simclock.RealClock{}
	mock := (*simclock.MockClock)(nil)
	if !opts.Realtime {
		mock = simclock.NewMockClock(time.Unix(0, 0))
		clock = mock
	}
	simTime := simclock.NewSimTime(clock)

	deps := lidar.Deps{Caster: world, Async: world, Time: simTime, Owner: "robot"}
	if plotSink != nil {
		deps.Sink = plotSink
	}
	sensor, err := lidar.New(lcfg, deps)
	if err != nil {
		return out, fmt.Errorf("failed to create lidar: %w", err)
	}

	dcfg := cfg.DriveConfig()
	est, err := drive.NewEstimator(dcfg)
	if err != nil {
		return out, fmt.Errorf("failed to create odometry: %w", err)
	}
	base, err := drive.NewDifferentialDrive(dcfg, est)
	if err != nil {
		return out, fmt.Errorf("failed to create drive: %w", err)
	}
	base.SetWheels(&drive.Wheel{}, &drive.Wheel{})
	base.SetVelocity(r3.Vec{X: opts.CmdVel}, r3.Vec{Z: opts.CmdYaw})

	store := session.NewStore()
	defer store.Close()
	if err := store.AddLidar(lidarName, sensor); err != nil {
		return out, err
	}
	if err := store.AddDrive(driveName, base); err != nil {
		return out, err
	}
	out.Session = store.ID().String()

	var rec *recorder.Recorder
	if opts.DBPath != "" {
		rec, err = recorder.Open(opts.DBPath)
		if err != nil {
			return out, err
		}
		defer rec.Close()
		if err := rec.StartSession(store.ID(), fmt.Sprintf("demo room, %s at %s", duration, tick)); err != nil {
			return out, err
		}
		defer func() {
			if err := rec.EndSession(store.ID()); err != nil {
				logf("failed to end session %s: %v", store.ID(), err)
			}
		}()
	}

	// Callbacks run on the scheduler goroutine.
	var recordErr error
	runner := &sim.Runner{
		Lidar:        sensor,
		Drive:        base,
		World:        world,
		Time:         simTime,
		Mount:        frames.Transform{Translation: r3.Vec{X: 10, Z: 20}, Rotation: frames.Identity},
		TickInterval: tick,
		OnScan: func(scan rosmsg.LaserScan) {
			out.LastScan = scan
			if rec == nil || recordErr != nil {
				return
			}
			if _, err := rec.RecordScan(store.ID(), scan); err != nil {
				recordErr = err
				return
			}
			out.Recorded++
		},
		OnOdometry: func(o rosmsg.Odometry) {
			if plotSink != nil {
				plotSink.AddOdometry(o)
			}
			if rec == nil || recordErr != nil {
				return
			}
			if err := rec.RecordOdometry(store.ID(), o); err != nil {
				recordErr = err
			}
		},
	}

	logf("session %s: %s simulated at %s ticks (realtime=%t)", store.ID(), duration, tick, opts.Realtime)
	if opts.Realtime {
		rctx, cancel := context.WithTimeout(ctx, duration)
		err = runner.Run(rctx)
		cancel()
	} else {
		err = stepFor(ctx, runner, mock, duration, tick)
	}
	if err != nil {
		return out, err
	}
	if recordErr != nil {
		return out, fmt.Errorf("failed to record session: %w", recordErr)
	}

	out.Stats = runner.Stats()
	out.Final = est.State()
	out.SimTime = simTime.Seconds()
	out.Transform = runner.TransformRecords()
	for _, in := range out.LastScan.Intensities {
		if math.IsNaN(float64(in)) {
			out.Unknown++
		}
	}
	for _, h := range sensor.State().Hits {
		if !h.IsMiss() {
			out.Hits++
		}
	}

	if err := writeOutputs(opts, plotSink, out.LastScan); err != nil {
		return out, err
	}
	return out, nil
}

// stepFor advances a mock clock and the runner in lockstep.
func stepFor(ctx context.Context, r *sim.Runner, clock *simclock.MockClock, duration, tick time.Duration) error {
	for elapsed := time.Duration(0); elapsed < duration; elapsed += tick {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				logf("stopped early at %s", elapsed)
				return nil
			}
			return err
		}
		clock.Advance(tick)
		if err := r.Step(ctx, tick); err != nil {
			return err
		}
	}
	return nil
}

func writeOutputs(opts options, plotSink *visualiser.PlotSink, last rosmsg.LaserScan) error {
	if plotSink != nil {
		if err := plotSink.Save(opts.PlotPath); err != nil {
			return err
		}
		logf("wrote plot %s", opts.PlotPath)
	}
	if opts.HTMLPath != "" {
		if last.Len() == 0 {
			return errors.New("no scan to render")
		}
		f, err := os.Create(opts.HTMLPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.HTMLPath, err)
		}
		if err := visualiser.WriteScanHTML(f, last); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", opts.HTMLPath, err)
		}
		logf("wrote scan chart %s", opts.HTMLPath)
	}
	return nil
}

func printSummary(w io.Writer, s summary) {
	fmt.Fprintf(w, "session      %s\n", s.Session)
	fmt.Fprintf(w, "sim time     %.3fs\n", s.SimTime)
	fmt.Fprintf(w, "ticks        %d\n", s.Stats.Ticks)
	fmt.Fprintf(w, "scans        %d (recorded %d)\n", s.Stats.Scans, s.Recorded)
	fmt.Fprintf(w, "last scan    %d samples, %d hits, %d unknown intensity\n", s.LastScan.Len(), s.Hits, s.Unknown)
	fmt.Fprintf(w, "odometry     x=%.1fcm y=%.1fcm theta=%.1fdeg\n", s.Final.X, s.Final.Y, s.Final.Theta*180/math.Pi)
	for _, tf := range s.Transform {
		p := tf.Transform.Translation
		fmt.Fprintf(w, "tf %s->%s  (%.3f, %.3f, %.3f) yaw=%.3f\n",
			tf.Header.FrameID, tf.ChildFrameID, p.X, p.Y, p.Z, frames.Yaw(tf.Transform.Rotation))
	}
}
