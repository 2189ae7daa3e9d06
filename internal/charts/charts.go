// Package charts renders dashboard charts as inline SVG with gonum/plot.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"image/color"
	"math"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when a chart is asked to draw zero points.
var ErrNoData = errors.New("no data to plot")

const (
	DefaultWidth  = 16 * vg.Centimeter
	DefaultHeight = 9 * vg.Centimeter
)

// Options control titles, axis labels and size of a chart.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
	// Color is the series color; palette defaults apply when nil.
	Color color.Color
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

func newPlot(o Options) *plot.Plot {
	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = o.XLabel
	p.Y.Label.Text = o.YLabel
	p.BackgroundColor = color.Transparent
	return p
}

func render(p *plot.Plot, o Options) (template.HTML, error) {
	w, h := o.size()
	wt, err := p.WriterTo(w, h, "svg")
	if err != nil {
		return "", fmt.Errorf("render svg: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("write svg: %w", err)
	}
	return inline(buf.Bytes()), nil
}

// inline drops the XML prolog so the document can be embedded in HTML.
func inline(doc []byte) template.HTML {
	if i := bytes.Index(doc, []byte("<svg")); i >= 0 {
		doc = doc[i:]
	}
	return template.HTML(doc)
}

// Compact formats v with an SI prefix and at most one decimal, e.g. 1.5k, 12M.
func Compact(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return humanize.FtoaWithDigits(v, 1)
	}
	scaled, prefix := humanize.ComputeSI(v)
	return humanize.FtoaWithDigits(scaled, 1) + prefix
}

// compactTicks relabels the default ticks with Compact.
type compactTicks struct {
	plot.Ticker
}

func (t compactTicks) Ticks(min, max float64) []plot.Tick {
	ticks := t.Ticker.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = Compact(ticks[i].Value)
		}
	}
	return ticks
}

var compactMarker plot.Ticker = compactTicks{Ticker: plot.DefaultTicks{}}

func seriesColor(o Options, fallback color.Color) color.Color {
	if o.Color != nil {
		return o.Color
	}
	return fallback
}

func reversed(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[len(labels)-1-i] = l
	}
	return out
}
