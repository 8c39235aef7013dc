package scene

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func wallWorld(t *testing.T, x float64, m Material) *World {
	t.Helper()
	w := NewWorld(2)
	require.NoError(t, w.AddActor(Actor{
		ID:       "wall",
		Shape:    NewPlane(r3.Vec{X: x}, r3.Vec{X: -1}),
		Material: m,
	}))
	return w
}

func TestWorld_LineTraceHitsPlane(t *testing.T) {
	t.Parallel()
	w := wallWorld(t, 500, MaterialReflective)

	h := w.LineTrace(r3.Vec{X: 10}, r3.Vec{X: 1000}, LaserTrace("sensor"))
	require.False(t, h.IsMiss())
	assert.True(t, h.Blocking)
	assert.Equal(t, ActorID("wall"), h.Actor)
	assert.InDelta(t, 490, h.Distance, 1e-9)
	assert.InDelta(t, 500, h.ImpactPoint.X, 1e-9)
	assert.Equal(t, r3.Vec{X: -1}, h.Normal)
	assert.Equal(t, MaterialReflective, h.Material)
	assert.Equal(t, r3.Vec{X: 1}, h.Direction())
}

func TestWorld_LineTraceMissKeepsSegment(t *testing.T) {
	t.Parallel()
	w := wallWorld(t, 5000, MaterialNonReflective)

	start, end := r3.Vec{X: 10}, r3.Vec{X: 1000}
	h := w.LineTrace(start, end, LaserTrace(""))
	assert.True(t, h.IsMiss())
	assert.Equal(t, start, h.TraceStart)
	assert.Equal(t, end, h.TraceEnd)
	assert.Equal(t, MaterialUnknown, h.Material)
	assert.Zero(t, h.Distance)
}

func TestWorld_IgnoresOwnerAndNoMaterialFlag(t *testing.T) {
	t.Parallel()
	w := wallWorld(t, 500, MaterialReflective)

	h := w.LineTrace(r3.Vec{}, r3.Vec{X: 1000}, LaserTrace("wall"))
	assert.True(t, h.IsMiss())

	h = w.LineTrace(r3.Vec{}, r3.Vec{X: 1000}, QueryParams{})
	assert.Equal(t, ActorID("wall"), h.Actor)
	assert.Equal(t, MaterialUnknown, h.Material)
}

func TestWorld_ClosestActorWins(t *testing.T) {
	t.Parallel()
	w := wallWorld(t, 500, MaterialNonReflective)
	require.NoError(t, w.AddActor(Actor{ID: "ball", Shape: &Sphere{Center: r3.Vec{X: 200}, Radius: 50}}))
	require.NoError(t, w.AddActor(Actor{ID: "crate", Shape: NewBox(r3.Vec{X: 350}, r3.Vec{X: 20, Y: 20, Z: 20})}))

	h := w.LineTrace(r3.Vec{}, r3.Vec{X: 1000}, QueryParams{})
	assert.Equal(t, ActorID("ball"), h.Actor)
	assert.InDelta(t, 150, h.Distance, 1e-9)

	assert.True(t, w.RemoveActor("ball"))
	h = w.LineTrace(r3.Vec{}, r3.Vec{X: 1000}, QueryParams{})
	assert.Equal(t, ActorID("crate"), h.Actor)
	assert.InDelta(t, 340, h.Distance, 1e-9)
	assert.Equal(t, r3.Vec{X: -1}, h.Normal)
}

func TestWorld_AddActorValidation(t *testing.T) {
	t.Parallel()
	w := NewWorld(0)
	assert.Error(t, w.AddActor(Actor{Shape: &Sphere{Radius: 1}}))
	assert.Error(t, w.AddActor(Actor{ID: "a"}))
	require.NoError(t, w.AddActor(Actor{ID: "a", Shape: &Sphere{Radius: 1}}))
	assert.Error(t, w.AddActor(Actor{ID: "a", Shape: &Sphere{Radius: 1}}))
	assert.Equal(t, 1, w.Actors())
	assert.False(t, w.RemoveActor("missing"))
}

func TestWorld_AsyncTraceCompletesOnStep(t *testing.T) {
	t.Parallel()
	w := wallWorld(t, 500, MaterialNonReflective)

	hit := w.AsyncLineTrace(r3.Vec{}, r3.Vec{X: 1000}, QueryParams{})
	miss := w.AsyncLineTrace(r3.Vec{}, r3.Vec{Y: 1000}, QueryParams{})
	assert.True(t, hit.InFlight())
	assert.NotEqual(t, hit, miss)

	_, ok := w.QueryTraceData(hit)
	assert.False(t, ok, "not complete before Step")

	require.NoError(t, w.Step(context.Background()))

	d, ok := w.QueryTraceData(hit)
	require.True(t, ok)
	require.Len(t, d.OutHits, 1)
	assert.Equal(t, ActorID("wall"), d.OutHits[0].Actor)

	d, ok = w.QueryTraceData(miss)
	require.True(t, ok)
	assert.Empty(t, d.OutHits)
	assert.Equal(t, r3.Vec{Y: 1000}, d.End)

	_, ok = w.QueryTraceData(hit)
	assert.False(t, ok, "datum is released after collection")
	assert.Zero(t, w.Pending())
}

func TestWorld_StepHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	w := wallWorld(t, 500, MaterialNonReflective)
	w.AsyncLineTrace(r3.Vec{}, r3.Vec{X: 1000}, QueryParams{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, w.Step(ctx))
}

func TestShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		shape  Shape
		origin r3.Vec
		dir    r3.Vec
		wantT  float64
		wantOK bool
	}{
		{"plane parallel", NewPlane(r3.Vec{X: 5}, r3.Vec{X: 1}), r3.Vec{}, r3.Vec{Y: 1}, 0, false},
		{"plane behind", NewPlane(r3.Vec{X: -5}, r3.Vec{X: 1}), r3.Vec{}, r3.Vec{X: 1}, 0, false},
		{"sphere front", &Sphere{Center: r3.Vec{X: 10}, Radius: 2}, r3.Vec{}, r3.Vec{X: 1}, 8, true},
		{"sphere inside", &Sphere{Center: r3.Vec{}, Radius: 2}, r3.Vec{}, r3.Vec{X: 1}, 2, true},
		{"sphere off axis", &Sphere{Center: r3.Vec{X: 10, Y: 5}, Radius: 2}, r3.Vec{}, r3.Vec{X: 1}, 0, false},
		{"box front", NewBox(r3.Vec{X: 10}, r3.Vec{X: 2, Y: 2, Z: 2}), r3.Vec{}, r3.Vec{X: 1}, 9, true},
		{"box inside", NewBox(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2}), r3.Vec{}, r3.Vec{Y: 1}, 1, true},
		{"box miss", NewBox(r3.Vec{X: 10, Y: 10}, r3.Vec{X: 2, Y: 2, Z: 2}), r3.Vec{}, r3.Vec{X: 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, ok := tt.shape.Intersect(tt.origin, tt.dir, 0, 100)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, tt.wantT, got, 1e-9)
				assert.LessOrEqual(t, r3.Dot(n, tt.dir), 0.0, "normal faces the ray")
			}
		})
	}
}

func TestMaterialStringRoundTrip(t *testing.T) {
	t.Parallel()
	for _, m := range []Material{MaterialNonReflective, MaterialReflective, MaterialPartiallyReflective} {
		assert.Equal(t, m, ParseMaterial(m.String()))
	}
	assert.Equal(t, MaterialUnknown, ParseMaterial("glass"))
	assert.Equal(t, "unknown", MaterialUnknown.String())
}
