// Package visualiser implements the debug sinks for the range sensor: an
// in-memory point collector, a PNG scatter plot and an HTML scan chart.
package visualiser

import (
	"image/color"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
)

var _ lidar.DebugSink = (*Collector)(nil)

// Point is one debug draw call.
type Point struct {
	Position r3.Vec // sim units
	Color    color.RGBA
	Size     float64
	Lifetime time.Duration
}

// Collector records debug points in memory. It is safe for concurrent use.
// Limit bounds the number of retained points; the oldest are dropped
// first. Zero means unbounded.
type Collector struct {
	Limit int

	mu     sync.Mutex
	points []Point
}

// DrawPoint implements lidar.DebugSink.
func (c *Collector) DrawPoint(p r3.Vec, col color.RGBA, size float64, lifetime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = append(c.points, Point{Position: p, Color: col, Size: size, Lifetime: lifetime})
	if c.Limit > 0 && len(c.points) > c.Limit {
		c.points = append(c.points[:0], c.points[len(c.points)-c.Limit:]...)
	}
}

// Points returns a copy of the recorded points.
func (c *Collector) Points() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Point(nil), c.points...)
}

// Len returns the number of recorded points.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.points)
}

// Reset drops all points.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = nil
}
