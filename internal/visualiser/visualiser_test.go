package visualiser

import (
	"bytes"
	"context"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorsim/internal/rosmsg"
	"github.com/banshee-data/sensorsim/internal/scene"
	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
)

func TestCollector_Limit(t *testing.T) {
	t.Parallel()
	c := &Collector{Limit: 3}
	for i := 0; i < 5; i++ {
		c.DrawPoint(r3.Vec{X: float64(i)}, color.RGBA{A: 255}, 1, time.Second)
	}
	pts := c.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, 2.0, pts[0].Position.X)
	assert.Equal(t, 4.0, pts[2].Position.X)

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestCollector_ReceivesSensorPoints(t *testing.T) {
	t.Parallel()
	w := scene.NewWorld(1)
	require.NoError(t, w.AddActor(scene.Actor{
		ID:       "wall",
		Shape:    scene.NewPlane(r3.Vec{X: 300}, r3.Vec{X: -1}),
		Material: scene.MaterialPartiallyReflective,
	}))

	cfg := lidar.DefaultConfig()
	cfg.NSamplesPerScan = 16
	cfg.FOVHorizontal = 16
	cfg.ShowLidarRays = true
	cfg.WithNoise = false
	sink := &PlotSink{Title: "wall"}
	s, err := lidar.New(cfg, lidar.Deps{Caster: w, Sink: sink})
	require.NoError(t, err)
	s.Run()
	require.NoError(t, s.Scan(context.Background()))

	pts := sink.Points()
	require.Len(t, pts, 16)
	assert.InDelta(t, 300, pts[0].Position.X, 1e-9)

	path := filepath.Join(t.TempDir(), "scan.png")
	sink.AddOdometry(rosmsg.Odometry{})
	sink.AddOdometry(rosmsg.Odometry{Pose: rosmsg.PoseWithCovariance{Pose: rosmsg.Pose{Position: r3.Vec{X: 0.5}}}})
	require.NoError(t, sink.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPlotSink_EmptySave(t *testing.T) {
	t.Parallel()
	err := (&PlotSink{}).Save(filepath.Join(t.TempDir(), "empty.png"))
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestScanXY(t *testing.T) {
	t.Parallel()
	scan := rosmsg.LaserScan{
		AngleMin:       float32(-math.Pi / 2),
		AngleIncrement: float32(math.Pi / 2),
		Ranges:         []float32{2, 3},
	}
	x, y := ScanXY(scan, 0)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, -2, y, 1e-6)
	x, y = ScanXY(scan, 1)
	assert.InDelta(t, 3, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestWriteScanHTML(t *testing.T) {
	t.Parallel()
	nan := float32(math.NaN())
	scan := rosmsg.LaserScan{
		Header:         rosmsg.Header{FrameID: "base_scan", Stamp: rosmsg.Time{Sec: 4, Nanosec: 5}},
		AngleMin:       -1,
		AngleIncrement: 0.5,
		RangeMax:       10,
		Ranges:         []float32{1, 2, 3},
		Intensities:    []float32{1000, nan, 6000},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteScanHTML(&buf, scan))

	html := buf.String()
	assert.Contains(t, html, "LIDAR Scan")
	assert.Contains(t, html, "base_scan")
	assert.Contains(t, html, "4.000000005")
	assert.Contains(t, html, "unknown")
	assert.NotContains(t, html, "NaN")
}
