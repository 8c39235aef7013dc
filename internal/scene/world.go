package scene

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Actor is a scene object with a collision shape and a surface material.
type Actor struct {
	ID       ActorID
	Shape    Shape
	Material Material
}

type pendingTrace struct {
	start, end r3.Vec
	params     QueryParams
	done       bool
	datum      TraceDatum
}

// World is an in-memory scene. Blocking traces are answered immediately;
// asynchronous traces complete when Step advances the physics frame.
// World is safe for concurrent use.
type World struct {
	mu      sync.RWMutex
	actors  []Actor
	frame   uint64
	nextIdx uint32
	pending map[TraceHandle]*pendingTrace
	workers int
}

// NewWorld creates an empty world. workers bounds the parallelism of Step;
// zero or negative uses GOMAXPROCS.
func NewWorld(workers int) *World {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &World{
		frame:   1,
		pending: make(map[TraceHandle]*pendingTrace),
		workers: workers,
	}
}

// AddActor inserts an actor. IDs must be unique and non-empty.
func (w *World) AddActor(a Actor) error {
	if a.ID == "" {
		return fmt.Errorf("actor id must not be empty")
	}
	if a.Shape == nil {
		return fmt.Errorf("actor %q has no shape", a.ID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.actors {
		if existing.ID == a.ID {
			return fmt.Errorf("actor %q already exists", a.ID)
		}
	}
	w.actors = append(w.actors, a)
	return nil
}

// RemoveActor deletes an actor by ID and reports whether it existed.
func (w *World) RemoveActor(id ActorID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, a := range w.actors {
		if a.ID == id {
			w.actors = append(w.actors[:i], w.actors[i+1:]...)
			return true
		}
	}
	return false
}

// Actors returns the number of actors in the world.
func (w *World) Actors() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.actors)
}

// LineTrace implements RayCaster: the closest blocking hit on the segment.
func (w *World) LineTrace(start, end r3.Vec, params QueryParams) Hit {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.trace(start, end, params)
}

func (w *World) trace(start, end r3.Vec, params QueryParams) Hit {
	miss := Hit{TraceStart: start, TraceEnd: end}
	seg := r3.Sub(end, start)
	length := r3.Norm(seg)
	if length == 0 {
		return miss
	}
	dir := r3.Scale(1/length, seg)

	best := math.Inf(1)
	var hit Hit
	for _, a := range w.actors {
		if a.ID == params.Ignore {
			continue
		}
		t, n, ok := a.Shape.Intersect(start, dir, 0, length)
		if !ok || t >= best {
			continue
		}
		best = t
		hit = Hit{
			Blocking:    true,
			ImpactPoint: r3.Add(start, r3.Scale(t, dir)),
			TraceStart:  start,
			TraceEnd:    end,
			Normal:      n,
			Distance:    t,
			Actor:       a.ID,
		}
		if params.ReturnPhysicalMaterial {
			hit.Material = a.Material
		}
	}
	if math.IsInf(best, 1) {
		return miss
	}
	return hit
}

// AsyncLineTrace implements AsyncRayCaster. The trace is resolved on the
// next Step.
func (w *World) AsyncLineTrace(start, end r3.Vec, params QueryParams) TraceHandle {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextIdx++
	h := TraceHandle{FrameNumber: w.frame, Index: w.nextIdx}
	w.pending[h] = &pendingTrace{start: start, end: end, params: params}
	return h
}

// QueryTraceData implements AsyncRayCaster. A completed datum is returned
// once and then released.
func (w *World) QueryTraceData(h TraceHandle) (TraceDatum, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[h]
	if !ok || !p.done {
		return TraceDatum{}, false
	}
	delete(w.pending, h)
	return p.datum, true
}

// Pending returns the number of submitted traces not yet collected.
func (w *World) Pending() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.pending)
}

// Step advances the physics frame and completes every outstanding async
// trace in parallel.
func (w *World) Step(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	todo := make([]*pendingTrace, 0, len(w.pending))
	for _, p := range w.pending {
		if !p.done {
			todo = append(todo, p)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for _, p := range todo {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h := w.trace(p.start, p.end, p.params)
			p.datum = TraceDatum{Start: p.start, End: p.end}
			if !h.IsMiss() {
				p.datum.OutHits = []Hit{h}
			}
			p.done = true
			return nil
		})
	}
	err := g.Wait()
	w.frame++
	return err
}

// Clear removes all actors and abandons outstanding traces.
func (w *World) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actors = nil
	w.pending = make(map[TraceHandle]*pendingTrace)
}
