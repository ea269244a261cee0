package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/ccnfit/internal/pipeline"
)

// WriteSummaryHTML renders a page with the Dp50 of every fitted peak per
// scan and the applied shift per scan.
func WriteSummaryHTML(w io.Writer, rep *pipeline.Report) error {
	page := components.NewPage()
	page.PageTitle = "ccnfit summary"
	page.AddCharts(dp50Chart(rep), shiftChart(rep))
	return page.Render(w)
}

func dp50Chart(rep *pipeline.Report) *charts.Scatter {
	var peaks int
	for _, o := range rep.Outcomes {
		peaks = max(peaks, len(o.Fit.Results))
	}
	series := make([][]opts.ScatterData, peaks)
	var outliers []opts.ScatterData
	for _, o := range rep.Outcomes {
		if !o.Status.Valid {
			continue
		}
		for i, dp := range o.Dp50s() {
			pt := opts.ScatterData{Value: []interface{}{o.Index, dp}}
			if o.Outlier && i == 0 {
				outliers = append(outliers, pt)
				continue
			}
			series[i] = append(series[i], pt)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Dp50", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Activation diameter", Subtitle: fmt.Sprintf("scans=%d reference shift=%d", len(rep.Outcomes), rep.ReferenceShift)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Scan", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Dp50 (nm)", NameLocation: "middle", NameGap: 40}),
	)
	for i, data := range series {
		scatter.AddSeries(fmt.Sprintf("peak %d", i), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}
	if len(outliers) > 0 {
		scatter.AddSeries("outlier", outliers, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	}
	return scatter
}

func shiftChart(rep *pipeline.Report) *charts.Bar {
	x := make([]string, 0, len(rep.Outcomes))
	y := make([]opts.BarData, 0, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		x = append(x, fmt.Sprintf("%d", o.Index))
		y = append(y, opts.BarData{Value: o.Shift, Name: o.Status.Description})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Shift", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Applied shift", Subtitle: "CCNC samples dropped (+) or padded (-)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Scan"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Shift (s)"}),
	)
	bar.SetXAxis(x).
		AddSeries("shift", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
