package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trackcam/internal/tracking"
)

func scatterData(points []tracking.Point) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(points))
	for _, p := range points {
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
	}
	return data
}

// RenderHTML writes an interactive scatter of tr to w.
func RenderHTML(w io.Writer, tr Trajectory) error {
	if tr.Empty() {
		return ErrEmptyTrajectory
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track " + tr.SessionID, Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Session " + tr.SessionID,
			Subtitle: fmt.Sprintf("frames=%d tracked=%d coasted=%d", tr.Frames, len(tr.Corrected), len(tr.Coasted)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("tracked", scatterData(tr.Corrected),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#00c853"}))
	scatter.AddSeries("coasting", scatterData(tr.Coasted),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render trajectory chart: %w", err)
	}
	return nil
}
