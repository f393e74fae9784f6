// Package report renders convergence curves and model comparisons as PNG
// charts with gonum/plot.
package report

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// Size of every rendered chart.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

var (
	curveColor = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	barColor   = color.RGBA{R: 40, G: 120, B: 40, A: 220}
)

// CurvePNG draws curve against its 1-based iteration index and saves it to
// path. Non-finite values are left out of the line.
func CurvePNG(path string, curve model.Curve, title string) error {
	xys := make(plotter.XYs, 0, len(curve.Values))
	for i, v := range curve.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i + 1), Y: v})
	}
	if len(xys) == 0 {
		return errors.NewValueError("CurvePNG", "curve "+curve.Name+" has no finite values")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = curve.Name
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "report: curve line")
	}
	line.Color = curveColor
	line.Width = vg.Points(1.2)
	p.Add(line)

	return save(p, path)
}

// Bar is one labelled value of a comparison chart.
type Bar struct {
	Label string
	Value float64
}

// ComparisonPNG draws one bar per entry, in order, and saves the chart to
// path. Entries with non-finite values are dropped.
func ComparisonPNG(path string, bars []Bar, title, yLabel string) error {
	values := make(plotter.Values, 0, len(bars))
	labels := make([]string, 0, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			continue
		}
		values = append(values, b.Value)
		labels = append(labels, b.Label)
	}
	if len(values) == 0 {
		return errors.NewValueError("ComparisonPNG", "no finite values to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	chart, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "report: bar chart")
	}
	chart.Color = barColor
	chart.LineStyle.Width = vg.Length(0)
	p.Add(chart)
	p.NominalX(labels...)

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "report: create directory for %s", path)
	}
	if err := p.Save(Width, Height, path); err != nil {
		return errors.Wrapf(err, "report: save %s", path)
	}
	return nil
}
