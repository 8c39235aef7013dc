// Package lidar implements a planar scanning range sensor: per-cycle ray
// casting against a scene backend, noise injection, intensity resolution
// and assembly of the outgoing laser-scan record.
package lidar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/frames"
	"github.com/banshee-data/sensorsim/internal/noise"
	"github.com/banshee-data/sensorsim/internal/scene"
)

// ErrNotRunning is returned by cycle operations called before Run.
var ErrNotRunning = errors.New("lidar: sensor not running")

// TimeSource reports the current simulation time in seconds.
type TimeSource interface {
	Seconds() float64
}

// Deps are the collaborators a Sensor needs. Caster is always required;
// Async is required when the config selects DispatchAsync.
type Deps struct {
	Caster scene.RayCaster
	Async  scene.AsyncRayCaster
	Time   TimeSource
	Sink   DebugSink
	// Owner is excluded from every trace.
	Owner scene.ActorID
	// IntensityFromDist attenuates debug colours. Nil uses InverseSquare.
	IntensityFromDist func(intensity, distanceMetres float64) float64
}

// ScanState is a snapshot of the most recent cycle.
type ScanState struct {
	Hits           []scene.Hit
	TimeOfLastScan float64 // seconds
	Dt             float64 // seconds
}

// Sensor is one LIDAR instance. The cycle operations (Scan, Tick) are
// driven by a single scheduler; ScanRecord and State may be called from
// other goroutines.
type Sensor struct {
	cfg  Config
	deps Deps

	posNoise       *noise.Gaussian
	intensityNoise *noise.Gaussian

	mu       sync.RWMutex
	running  bool
	position r3.Vec
	rotation quat.Number
	hits     []scene.Hit
	handles  []scene.TraceHandle
	lastScan float64
	dt       float64
}

// New validates cfg and builds a sensor. The sensor is idle until Run.
func New(cfg Config, deps Deps) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Caster == nil {
		return nil, fmt.Errorf("%w: ray caster is required", ErrInvalidConfig)
	}
	if cfg.Dispatch == DispatchAsync && deps.Async == nil {
		return nil, fmt.Errorf("%w: async dispatch requires an async ray caster", ErrInvalidConfig)
	}
	if deps.IntensityFromDist == nil {
		deps.IntensityFromDist = InverseSquare
	}
	seed := cfg.NoiseSeed
	var seed2 uint64
	if seed != 0 {
		seed2 = seed + 1
	}
	return &Sensor{
		cfg:            cfg,
		deps:           deps,
		posNoise:       noise.NewGaussian(0, cfg.PositionNoiseStdDev, seed),
		intensityNoise: noise.NewGaussian(0, cfg.IntensityNoiseStdDev, seed2),
		rotation:       frames.Identity,
	}, nil
}

// Config returns the sensor configuration.
func (s *Sensor) Config() Config { return s.cfg }

// SetPose places the sensor in the world (simulation convention).
func (s *Sensor) SetPose(position r3.Vec, rotation quat.Number) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	s.rotation = rotation
}

// Pose returns the current sensor pose.
func (s *Sensor) Pose() (r3.Vec, quat.Number) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position, s.rotation
}

// Run (re)initialises the hit and handle buffers to NSamplesPerScan empty
// entries and returns the scan period the scheduler should use.
func (s *Sensor) Run() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.cfg.NSamplesPerScan
	s.hits = make([]scene.Hit, n)
	s.handles = make([]scene.TraceHandle, n)
	s.dt = s.cfg.Period()
	s.lastScan = 0
	s.running = true
	Opsf("sensor %s running: %d samples at %.2f Hz, %s dispatch",
		s.cfg.FrameID, n, s.cfg.ScanFrequency, s.cfg.Dispatch)
	return s.cfg.PeriodDuration()
}

// Running reports whether Run has been called.
func (s *Sensor) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ray returns the segment of sample i from the given pose.
func (s *Sensor) ray(i int, pos r3.Vec, rot quat.Number) (start, end r3.Vec) {
	yaw := (s.cfg.StartAngle + s.cfg.DHAngle()*float64(i)) * math.Pi / 180
	q := quat.Mul(rot, frames.YawQuat(yaw))
	fwd := r3.Rotation(q).Rotate(r3.Vec{X: 1})
	start = r3.Add(pos, r3.Scale(s.cfg.MinRange, fwd))
	end = r3.Add(pos, r3.Scale(s.cfg.MaxRange, fwd))
	return start, end
}

// Scan performs one cycle. In sync mode every ray is cast before Scan
// returns; in async mode a new batch is submitted only when the previous
// one has been fully collected by Tick.
func (s *Sensor) Scan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}

	params := scene.LaserTrace(s.deps.Owner)
	pos, rot := s.position, s.rotation
	n := s.cfg.NSamplesPerScan

	switch s.cfg.Dispatch {
	case DispatchAsync:
		if s.handles[0].InFlight() {
			Diagf("sensor %s: previous batch in flight, skipping submission", s.cfg.FrameID)
			break
		}
		for i := 0; i < n; i++ {
			start, end := s.ray(i, pos, rot)
			s.handles[i] = s.deps.Async.AsyncLineTrace(start, end, params)
		}
		Tracef("sensor %s: submitted %d async traces", s.cfg.FrameID, n)

	default:
		err := parallelFor(ctx, n, s.cfg.Workers, func(i int) {
			start, end := s.ray(i, pos, rot)
			s.hits[i] = s.deps.Caster.LineTrace(start, end, params)
		})
		if err != nil {
			return fmt.Errorf("scan cycle: %w", err)
		}
		// Noise is drawn in sample order so a seed reproduces the scan.
		if s.cfg.WithNoise {
			for i := range s.hits {
				s.perturb(&s.hits[i])
			}
		}
	}

	if s.deps.Time != nil {
		s.lastScan = s.deps.Time.Seconds()
	}
	s.dt = s.cfg.Period()
	s.draw()
	return nil
}

func (s *Sensor) perturb(h *scene.Hit) {
	h.ImpactPoint = r3.Add(h.ImpactPoint, s.posNoise.Vec())
	h.TraceEnd = r3.Add(h.TraceEnd, s.posNoise.Vec())
}

// Tick collects completed asynchronous traces. It is a no-op in sync mode.
// It returns the number of samples collected on this call.
func (s *Sensor) Tick() int {
	if s.cfg.Dispatch != DispatchAsync {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	collected := 0
	for i, h := range s.handles {
		if !h.InFlight() {
			continue
		}
		d, ok := s.deps.Async.QueryTraceData(h)
		if !ok {
			continue
		}
		if len(d.OutHits) > 0 {
			s.hits[i] = d.OutHits[0]
		} else {
			s.hits[i] = scene.Hit{TraceStart: d.Start, TraceEnd: d.End}
		}
		if s.cfg.WithNoise {
			s.perturb(&s.hits[i])
		}
		s.handles[i] = scene.TraceHandle{}
		collected++
	}
	if collected > 0 {
		Tracef("sensor %s: collected %d async traces", s.cfg.FrameID, collected)
	}
	return collected
}

// InFlight reports whether an asynchronous batch is outstanding.
func (s *Sensor) InFlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running && s.handles[0].InFlight()
}

// IsVisible reports whether any ray of a fresh blocking sweep from the
// current pose hits target. The recorded hits are not touched.
func (s *Sensor) IsVisible(ctx context.Context, target scene.ActorID) (bool, error) {
	if target == "" {
		return false, nil
	}
	pos, rot := s.Pose()
	n := s.cfg.NSamplesPerScan
	scratch := make([]scene.Hit, n)
	params := scene.LaserTrace(s.deps.Owner)
	err := parallelFor(ctx, n, s.cfg.Workers, func(i int) {
		start, end := s.ray(i, pos, rot)
		scratch[i] = s.deps.Caster.LineTrace(start, end, params)
	})
	if err != nil {
		return false, fmt.Errorf("visibility sweep: %w", err)
	}
	for _, h := range scratch {
		if h.Actor == target {
			return true, nil
		}
	}
	return false, nil
}

// State returns a copy of the most recent cycle.
func (s *Sensor) State() ScanState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ScanState{
		Hits:           append([]scene.Hit(nil), s.hits...),
		TimeOfLastScan: s.lastScan,
		Dt:             s.dt,
	}
}

// MinAngleRadians is the published angle_min: -(StartAngle + FOV) in
// radians, mirroring the sample order into the right-handed frame.
func (s *Sensor) MinAngleRadians() float64 {
	return -(s.cfg.StartAngle + s.cfg.FOVHorizontal) * math.Pi / 180
}

// MaxAngleRadians is the published angle_max: -StartAngle in radians.
func (s *Sensor) MaxAngleRadians() float64 {
	return -s.cfg.StartAngle * math.Pi / 180
}

// AngularBounds returns MinAngleRadians and MaxAngleRadians.
func (s *Sensor) AngularBounds() (float64, float64) {
	return s.MinAngleRadians(), s.MaxAngleRadians()
}
