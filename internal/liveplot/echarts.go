package liveplot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/lidar-tools/internal/imu"
)

// echartsAssetsHost serves the echarts javascript for rendered pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// renderPage writes an HTML page with one line chart per sensor group.
func renderPage(w io.Writer, s *Snapshot, y YRange) error {
	page := components.NewPage()
	page.PageTitle = "IMU live plot"
	page.SetAssetsHost(echartsAssetsHost)

	xs := make([]int, len(s.Rows))
	for i := range xs {
		xs[i] = i
	}
	last := s.Last()

	for _, g := range imu.Groups {
		yMin, yMax := y.For(s.Rows, g)
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: echartsAssetsHost}),
			charts.WithTitleOpts(opts.Title{Title: groupTitles[g], Subtitle: lastValuesText(last, g)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Left: "left", Bottom: "0"}),
			charts.WithYAxisOpts(opts.YAxis{Min: yMin, Max: yMax}),
		)
		line.SetXAxis(xs)
		for axis := 0; axis < 3; axis++ {
			field := int(g)*3 + axis
			data := make([]opts.LineData, len(s.Rows))
			for i, v := range imu.Series(s.Rows, field) {
				data[i] = opts.LineData{Value: v}
			}
			line.AddSeries(imu.Axes[axis], data,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
				charts.WithLineStyleOpts(opts.LineStyle{Color: AxisHex[axis], Width: 1}),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: AxisHex[axis]}),
			)
		}
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// lastValuesText formats the final X/Y/Z values of group g, e.g.
// "X: 1  Y: -2.5  Z: 0".
func lastValuesText(last imu.Sample, g imu.Group) string {
	vals := last.Group(g)
	out := ""
	for axis, v := range vals {
		if axis > 0 {
			out += "  "
		}
		out += imu.Axes[axis] + ": " + strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}
