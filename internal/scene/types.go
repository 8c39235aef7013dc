// Package scene defines the ray-cast collaborator the sensors query and an
// in-memory world that implements it.
package scene

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Material is the physical surface classification returned with a hit.
// It is a closed set: intensity resolution switches over every value.
type Material uint8

const (
	// MaterialUnknown means no physical material was reported. Misses and
	// hits on surfaces without a material carry this value.
	MaterialUnknown Material = iota
	// MaterialNonReflective is the default surface type.
	MaterialNonReflective
	// MaterialReflective is a retro-reflective surface.
	MaterialReflective
	// MaterialPartiallyReflective reflects according to the incidence angle.
	MaterialPartiallyReflective
)

// String returns the lowercase material name.
func (m Material) String() string {
	switch m {
	case MaterialNonReflective:
		return "non_reflective"
	case MaterialReflective:
		return "reflective"
	case MaterialPartiallyReflective:
		return "partially_reflective"
	default:
		return "unknown"
	}
}

// ParseMaterial is the inverse of Material.String. Unrecognised names map
// to MaterialUnknown.
func ParseMaterial(s string) Material {
	switch s {
	case "non_reflective", "":
		return MaterialNonReflective
	case "reflective":
		return MaterialReflective
	case "partially_reflective":
		return MaterialPartiallyReflective
	default:
		return MaterialUnknown
	}
}

// ActorID identifies the scene actor occupying a hit. The empty ID is "none".
type ActorID string

// Hit is the result of one line trace. A zero Actor means the trace missed;
// TraceStart and TraceEnd are always populated by the backend.
type Hit struct {
	Blocking    bool
	ImpactPoint r3.Vec
	TraceStart  r3.Vec
	TraceEnd    r3.Vec
	Normal      r3.Vec
	Distance    float64 // from TraceStart to ImpactPoint, sim units
	Material    Material
	Actor       ActorID
}

// IsMiss reports whether the trace hit nothing.
func (h Hit) IsMiss() bool { return h.Actor == "" }

// Direction returns the unit direction of the trace.
func (h Hit) Direction() r3.Vec {
	d := r3.Sub(h.TraceEnd, h.TraceStart)
	if r3.Norm(d) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(d)
}

// QueryParams are the flags of a sensor line trace.
type QueryParams struct {
	Tag                    string
	ReturnPhysicalMaterial bool
	ReturnFaceIndex        bool
	TraceComplex           bool
	Ignore                 ActorID // actor excluded from the trace, usually the sensor owner
}

// LaserTrace returns the query flags used by range sensors.
func LaserTrace(owner ActorID) QueryParams {
	return QueryParams{
		Tag:                    "Laser_Trace",
		ReturnPhysicalMaterial: true,
		ReturnFaceIndex:        true,
		TraceComplex:           true,
		Ignore:                 owner,
	}
}

// RayCaster performs a blocking single-hit line trace.
// Implementations must be safe for concurrent use.
type RayCaster interface {
	LineTrace(start, end r3.Vec, params QueryParams) Hit
}

// TraceHandle identifies an asynchronous trace. FrameNumber is zero when no
// trace is in flight.
type TraceHandle struct {
	FrameNumber uint64
	Index       uint32
}

// InFlight reports whether the handle refers to a submitted trace.
func (h TraceHandle) InFlight() bool { return h.FrameNumber != 0 }

// TraceDatum is the completed result of an asynchronous trace.
type TraceDatum struct {
	Start   r3.Vec
	End     r3.Vec
	OutHits []Hit
}

// AsyncRayCaster submits traces without blocking and is polled for results.
type AsyncRayCaster interface {
	AsyncLineTrace(start, end r3.Vec, params QueryParams) TraceHandle
	// QueryTraceData returns the datum and true once the trace completed.
	QueryTraceData(h TraceHandle) (TraceDatum, bool)
}
