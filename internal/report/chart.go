package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sholl.report/internal/sholl"
)

// ChartOptions tunes the HTML chart.
type ChartOptions struct {
	// Unit labels the radius axis.
	Unit string
	// AssetsHost overrides where echarts JS is loaded from; empty uses the
	// go-echarts default CDN.
	AssetsHost string
}

// RenderProfileChart writes a self-contained HTML page with an interactive
// line chart of the profile.
func RenderProfileChart(w io.Writer, p *sholl.Profile, o ChartOptions) error {
	if p.Size() == 0 {
		return fmt.Errorf("cannot chart empty profile")
	}

	data := make([]opts.LineData, 0, p.Size())
	for _, e := range p.Entries {
		data = append(data, opts.LineData{Value: []interface{}{e.Radius, e.Crossings}})
	}

	sum := Summarise(p)
	subtitle := fmt.Sprintf("samples=%d max=%d critical radius=%g", sum.Samples, sum.MaxCrossings, sum.CriticalRadius)

	init := opts.Initialization{PageTitle: "Sholl profile", Width: "960px", Height: "540px"}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: profileTitle(p), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: axisLabel("Radius", o.Unit), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "No. of intersections", NameLocation: "middle", NameGap: 30}),
	)
	line.AddSeries("crossings", data)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
