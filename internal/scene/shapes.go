package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const parallelEpsilon = 1e-9

// Shape is a surface that can be intersected by a ray. dir must be unit
// length; the returned normal faces against dir.
type Shape interface {
	Intersect(origin, dir r3.Vec, tMin, tMax float64) (t float64, normal r3.Vec, ok bool)
}

// Plane is an infinite plane through Point with the given Normal.
type Plane struct {
	Point  r3.Vec
	Normal r3.Vec
}

// NewPlane returns a plane with a normalised normal.
func NewPlane(point, normal r3.Vec) *Plane {
	return &Plane{Point: point, Normal: r3.Unit(normal)}
}

// Intersect implements Shape.
func (p *Plane) Intersect(origin, dir r3.Vec, tMin, tMax float64) (float64, r3.Vec, bool) {
	denom := r3.Dot(dir, p.Normal)
	if math.Abs(denom) < parallelEpsilon {
		return 0, r3.Vec{}, false
	}
	t := r3.Dot(r3.Sub(p.Point, origin), p.Normal) / denom
	if t < tMin || t > tMax {
		return 0, r3.Vec{}, false
	}
	return t, faceNormal(dir, p.Normal), true
}

// Sphere is a sphere of Radius around Center.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

// Intersect implements Shape.
func (s *Sphere) Intersect(origin, dir r3.Vec, tMin, tMax float64) (float64, r3.Vec, bool) {
	oc := r3.Sub(origin, s.Center)
	halfB := r3.Dot(oc, dir)
	c := r3.Dot(oc, oc) - s.Radius*s.Radius
	disc := halfB*halfB - c
	if disc < 0 {
		return 0, r3.Vec{}, false
	}
	sq := math.Sqrt(disc)
	t := -halfB - sq
	if t < tMin || t > tMax {
		t = -halfB + sq
		if t < tMin || t > tMax {
			return 0, r3.Vec{}, false
		}
	}
	p := r3.Add(origin, r3.Scale(t, dir))
	n := r3.Scale(1/s.Radius, r3.Sub(p, s.Center))
	return t, faceNormal(dir, n), true
}

// Box is an axis-aligned box between Min and Max.
type Box struct {
	Min r3.Vec
	Max r3.Vec
}

// NewBox returns an axis-aligned box from its centre and full extent.
func NewBox(center, size r3.Vec) *Box {
	half := r3.Scale(0.5, size)
	return &Box{Min: r3.Sub(center, half), Max: r3.Add(center, half)}
}

// Intersect implements Shape using the slab method.
func (b *Box) Intersect(origin, dir r3.Vec, tMin, tMax float64) (float64, r3.Vec, bool) {
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	tNear, tFar := math.Inf(-1), math.Inf(1)
	nearAxis, farAxis := -1, -1
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < parallelEpsilon {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, r3.Vec{}, false
			}
			continue
		}
		t0 := (lo[i] - o[i]) / d[i]
		t1 := (hi[i] - o[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear, nearAxis = t0, i
		}
		if t1 < tFar {
			tFar, farAxis = t1, i
		}
		if tNear > tFar {
			return 0, r3.Vec{}, false
		}
	}

	t, axis := tNear, nearAxis
	if t < tMin {
		// Origin inside the box: report the exit face.
		t, axis = tFar, farAxis
	}
	if axis < 0 || t < tMin || t > tMax {
		return 0, r3.Vec{}, false
	}
	var n r3.Vec
	switch axis {
	case 0:
		n.X = 1
	case 1:
		n.Y = 1
	case 2:
		n.Z = 1
	}
	return t, faceNormal(dir, n), true
}

func faceNormal(dir, n r3.Vec) r3.Vec {
	if r3.Dot(dir, n) > 0 {
		return r3.Scale(-1, n)
	}
	return n
}
