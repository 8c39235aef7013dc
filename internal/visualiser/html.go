package visualiser

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sensorsim/internal/rosmsg"
)

// ScanXY converts sample i of a scan to Cartesian metres in the scan frame.
func ScanXY(scan rosmsg.LaserScan, i int) (x, y float64) {
	a := float64(scan.AngleMin) + float64(i)*float64(scan.AngleIncrement)
	r := float64(scan.Ranges[i])
	return r * math.Cos(a), r * math.Sin(a)
}

// WriteScanHTML renders a scan as an HTML scatter chart coloured by
// intensity. Samples with an unknown intensity go to a separate series.
func WriteScanHTML(w io.Writer, scan rosmsg.LaserScan) error {
	returns := make([]opts.ScatterData, 0, len(scan.Ranges))
	unknown := make([]opts.ScatterData, 0)
	maxIntensity := 1.0
	for i := range scan.Ranges {
		x, y := ScanXY(scan, i)
		var in float64
		if i < len(scan.Intensities) {
			in = float64(scan.Intensities[i])
		}
		if i >= len(scan.Intensities) || math.IsNaN(in) {
			unknown = append(unknown, opts.ScatterData{Value: []interface{}{x, y}})
			continue
		}
		maxIntensity = math.Max(maxIntensity, in)
		returns = append(returns, opts.ScatterData{Value: []interface{}{x, y, in}})
	}

	pad := float64(scan.RangeMax) * 1.05
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "LIDAR Scan", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "LIDAR Scan",
			Subtitle: fmt.Sprintf("frame=%s stamp=%d.%09d samples=%d", scan.Header.FrameID, scan.Header.Stamp.Sec, scan.Header.Stamp.Nanosec, len(scan.Ranges)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxIntensity),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("returns", returns, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("unknown", unknown, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render scan chart: %w", err)
	}
	return nil
}
