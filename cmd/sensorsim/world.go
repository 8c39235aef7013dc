package main

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/scene"
)

// Room dimensions in centimetres.
const (
	roomHalfX     = 500.0
	roomHalfY     = 400.0
	wallThickness = 20.0
	wallHeight    = 250.0
)

// demoActors returns a walled room with one wall per surface material, a
// reflective pillar and a crate without a material.
func demoActors() []scene.Actor {
	spanX := 2*roomHalfX + 2*wallThickness
	spanY := 2*roomHalfY + 2*wallThickness
	off := wallThickness / 2
	return []scene.Actor{
		{
			ID:       "wall_north",
			Shape:    scene.NewBox(r3.Vec{Y: roomHalfY + off}, r3.Vec{X: spanX, Y: wallThickness, Z: wallHeight}),
			Material: scene.MaterialReflective,
		},
		{
			ID:       "wall_south",
			Shape:    scene.NewBox(r3.Vec{Y: -roomHalfY - off}, r3.Vec{X: spanX, Y: wallThickness, Z: wallHeight}),
			Material: scene.MaterialNonReflective,
		},
		{
			ID:       "wall_east",
			Shape:    scene.NewBox(r3.Vec{X: roomHalfX + off}, r3.Vec{X: wallThickness, Y: spanY, Z: wallHeight}),
			Material: scene.MaterialPartiallyReflective,
		},
		{
			ID:       "wall_west",
			Shape:    scene.NewBox(r3.Vec{X: -roomHalfX - off}, r3.Vec{X: wallThickness, Y: spanY, Z: wallHeight}),
			Material: scene.MaterialNonReflective,
		},
		{
			ID:       "pillar",
			Shape:    &scene.Sphere{Center: r3.Vec{X: 250, Y: 150}, Radius: 30},
			Material: scene.MaterialReflective,
		},
		{
			ID:       "crate",
			Shape:    scene.NewBox(r3.Vec{X: -200, Y: -150}, r3.Vec{X: 60, Y: 60, Z: 60}),
			Material: scene.MaterialUnknown,
		},
	}
}

func buildWorld(workers int) (*scene.World, error) {
	w := scene.NewWorld(workers)
	for _, a := range demoActors() {
		if err := w.AddActor(a); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", a.ID, err)
		}
	}
	return w, nil
}
