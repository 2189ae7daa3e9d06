package charts

import (
	"fmt"
	"html/template"
	"math"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Point is one numeric observation.
type Point struct {
	X, Y float64
}

// Area draws a line filled down to zero. Points with a missing Y are skipped.
func Area(points []Point, o Options) (template.HTML, error) {
	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if math.IsNaN(pt.Y) || math.IsNaN(pt.X) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(xys) == 0 {
		return "", ErrNoData
	}

	p := newPlot(o)
	line, err := plotter.NewLine(xys)
	if err != nil {
		return "", fmt.Errorf("area line: %w", err)
	}
	c := seriesColor(o, Accent)
	line.Color = c
	line.Width = vg.Points(1.5)
	line.FillColor = Purples.At(0.35)
	p.Add(plotter.NewGrid(), line)
	p.Y.Tick.Marker = compactMarker
	p.Y.Min = math.Min(0, p.Y.Min)
	return render(p, o)
}

// LineMarkers draws a categorical line with a marker on every value.
func LineMarkers(bars []Bar, o Options) (template.HTML, error) {
	if len(bars) == 0 {
		return "", ErrNoData
	}
	xys := make(plotter.XYs, len(bars))
	for i, b := range bars {
		xys[i] = plotter.XY{X: float64(i), Y: finite(b.Value)}
	}

	p := newPlot(o)
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return "", fmt.Errorf("line points: %w", err)
	}
	c := seriesColor(o, Accent)
	line.Color = c
	line.Width = vg.Points(2)
	points.Shape = draw.CircleGlyph{}
	points.Color = c
	points.Radius = vg.Points(3.5)

	p.Add(plotter.NewGrid(), line, points)
	p.NominalX(labels(bars)...)
	p.Y.Tick.Marker = compactMarker
	return render(p, o)
}
