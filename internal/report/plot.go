package report

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sholl.report/internal/fsutil"
	"github.com/banshee-data/sholl.report/internal/monitoring"
	"github.com/banshee-data/sholl.report/internal/sholl"
)

var profileLineColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// NewProfilePlot builds a radius/crossings line plot with sample markers.
// unit labels the radius axis.
func NewProfilePlot(p *sholl.Profile, unit string) (*plot.Plot, error) {
	if p.Size() == 0 {
		return nil, fmt.Errorf("cannot plot empty profile")
	}

	pts := make(plotter.XYs, p.Size())
	for i, e := range p.Entries {
		pts[i] = plotter.XY{X: e.Radius, Y: float64(e.Crossings)}
	}

	pl := plot.New()
	pl.Title.Text = profileTitle(p)
	pl.X.Label.Text = axisLabel("Radius", unit)
	pl.Y.Label.Text = "No. of intersections"
	pl.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = profileLineColor
	line.Width = vg.Points(1)
	if p.StepSize == 0 {
		// Continuous profiles hold a count until the next breakpoint.
		line.StepStyle = plotter.PostStep
	}
	pl.Add(line)

	if p.StepSize > 0 {
		marks, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		marks.Color = profileLineColor
		marks.Radius = vg.Points(2)
		pl.Add(marks)
	}
	return pl, nil
}

// WriteProfilePlot renders the profile to path. The format follows the file
// extension (png, svg, pdf, ...).
func WriteProfilePlot(fsys fsutil.FileSystem, path string, p *sholl.Profile, unit string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("plot path %q has no extension", path)
	}

	pl, err := NewProfilePlot(p, unit)
	if err != nil {
		return err
	}
	wt, err := pl.WriterTo(8*vg.Inch, 5*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to render %s plot: %w", format, err)
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write plot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close plot file: %w", err)
	}
	monitoring.Logf("wrote profile plot %s", path)
	return nil
}

func profileTitle(p *sholl.Profile) string {
	name := p.Identifier
	if name == "" {
		name = "Sholl profile"
	}
	if p.StepSize > 0 {
		return fmt.Sprintf("%s (step %g)", name, p.StepSize)
	}
	return name + " (continuous)"
}

func axisLabel(name, unit string) string {
	if unit == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, unit)
}
