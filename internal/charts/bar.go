package charts

import (
	"fmt"
	"html/template"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Bar is one labelled category value.
type Bar struct {
	Label string
	Value float64
}

// VerticalBars draws bars left to right in the given order, shaded by value.
func VerticalBars(bars []Bar, scale Ramp, o Options) (template.HTML, error) {
	if len(bars) == 0 {
		return "", ErrNoData
	}
	p := newPlot(o)
	if err := addBars(p, bars, scale, false, o); err != nil {
		return "", err
	}
	p.NominalX(labels(bars)...)
	p.Y.Tick.Marker = compactMarker
	p.Y.Min = math.Min(0, p.Y.Min)
	return render(p, o)
}

// HorizontalBars draws a ranking with the first bar on top.
func HorizontalBars(bars []Bar, scale Ramp, o Options) (template.HTML, error) {
	if len(bars) == 0 {
		return "", ErrNoData
	}
	bottomUp := make([]Bar, len(bars))
	for i, b := range bars {
		bottomUp[len(bars)-1-i] = b
	}
	p := newPlot(o)
	if err := addBars(p, bottomUp, scale, true, o); err != nil {
		return "", err
	}
	p.NominalY(labels(bottomUp)...)
	p.X.Tick.Marker = compactMarker
	p.X.Min = math.Min(0, p.X.Min)
	return render(p, o)
}

// addBars adds one single-value bar chart per category so each bar can carry its own shade.
func addBars(p *plot.Plot, bars []Bar, scale Ramp, horizontal bool, o Options) error {
	var peak float64
	for _, b := range bars {
		if v := finite(b.Value); v > peak {
			peak = v
		}
	}

	w, h := o.size()
	span := w
	if horizontal {
		span = h
	}
	width := (span - 2*vg.Centimeter) / vg.Length(len(bars)) * 0.7
	if width > 28 {
		width = 28
	}
	if width < 1 {
		width = 1
	}

	for i, b := range bars {
		v := finite(b.Value)
		chart, err := plotter.NewBarChart(plotter.Values{v}, width)
		if err != nil {
			return fmt.Errorf("bar %q: %w", b.Label, err)
		}
		chart.XMin = float64(i)
		chart.Horizontal = horizontal
		chart.LineStyle.Width = 0
		shade := 1.0
		if peak > 0 {
			shade = 0.3 + 0.7*v/peak
		}
		chart.Color = seriesColor(o, scale.At(shade))
		p.Add(chart)
	}
	return nil
}

func labels(bars []Bar) []string {
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Label
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
