package visualiser

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/sensorsim/internal/frames"
	"github.com/banshee-data/sensorsim/internal/rosmsg"
)

// ErrNoPoints is returned when saving a plot with nothing to draw.
var ErrNoPoints = errors.New("visualiser: no points to plot")

// PlotSink is a Collector that can render its points, and an optional
// robot trajectory, to an image file.
type PlotSink struct {
	Collector
	Title string

	trajectory plotter.XYs
}

// AddOdometry appends the robot position of an odometry record (robotics
// convention) to the trajectory.
func (p *PlotSink) AddOdometry(o rosmsg.Odometry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := o.Pose.Pose.Position
	p.trajectory = append(p.trajectory, plotter.XY{X: pos.X, Y: pos.Y})
}

// Save renders a top-down scatter of the collected points in metres,
// right-handed, to path. The format follows the file extension.
func (p *PlotSink) Save(path string) error {
	points := p.Points()
	if len(points) == 0 {
		return ErrNoPoints
	}
	p.mu.Lock()
	trajectory := append(plotter.XYs(nil), p.trajectory...)
	p.mu.Unlock()

	pl := plot.New()
	pl.Title.Text = p.Title
	if pl.Title.Text == "" {
		pl.Title.Text = "LIDAR debug points"
	}
	pl.X.Label.Text = "X (m)"
	pl.Y.Label.Text = "Y (m)"
	pl.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		ros := frames.VectorSimToROS(pt.Position)
		xys[i] = plotter.XY{X: ros.X, Y: ros.Y}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("failed to create scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  points[i].Color,
			Radius: vg.Points(points[i].Size / 4),
			Shape:  draw.CircleGlyph{},
		}
	}
	pl.Add(scatter)
	pl.Legend.Add("returns", scatter)

	if len(trajectory) > 1 {
		line, err := plotter.NewLine(trajectory)
		if err != nil {
			return fmt.Errorf("failed to create trajectory line: %w", err)
		}
		line.Width = vg.Points(1)
		pl.Add(line)
		pl.Legend.Add("odometry", line)
	}

	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	if err := pl.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
