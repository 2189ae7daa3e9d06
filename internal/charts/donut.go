package charts

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgsvg"
)

// holeRatio is the inner radius of a donut relative to its outer radius.
const holeRatio = 0.4

// LegendItem pairs a slice label with its color and formatted share.
type LegendItem struct {
	Label string
	Color string
	Share float64
}

// Slice is one donut wedge.
type Slice struct {
	Label string
	Value float64
}

// Donut draws slices clockwise from twelve o'clock, darkest first, and returns
// the legend to render next to it.
func Donut(slices []Slice, scale Ramp, size vg.Length) (template.HTML, []LegendItem, error) {
	var total float64
	for _, s := range slices {
		total += math.Max(0, finite(s.Value))
	}
	if len(slices) == 0 || total <= 0 {
		return "", nil, ErrNoData
	}
	if size <= 0 {
		size = 8 * vg.Centimeter
	}

	c := vgsvg.New(size, size)
	center := vg.Point{X: size / 2, Y: size / 2}
	radius := size/2 - vg.Points(4)
	colors := scale.Steps(len(slices))
	legend := make([]LegendItem, len(slices))

	start := math.Pi / 2
	for i, s := range slices {
		share := math.Max(0, finite(s.Value)) / total
		sweep := -share * 2 * math.Pi
		if share > 0 {
			c.SetColor(colors[i])
			c.Fill(wedge(center, radius, start, sweep))
		}
		start += sweep
		legend[i] = LegendItem{Label: s.Label, Color: Hex(colors[i]), Share: share * 100}
	}

	c.SetColor(rgb(0xff, 0xff, 0xff))
	c.Fill(wedge(center, radius*holeRatio, 0, 2*math.Pi))

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return "", nil, fmt.Errorf("write donut: %w", err)
	}
	return inline(buf.Bytes()), legend, nil
}

// wedge builds a filled circular sector. Sweeps are split in quarter turns
// because a single arc cannot describe a full circle.
func wedge(center vg.Point, r vg.Length, start, sweep float64) vg.Path {
	var p vg.Path
	full := math.Abs(sweep) >= 2*math.Pi-1e-9
	if !full {
		p.Move(center)
	} else {
		p.Move(vg.Point{X: center.X + r*vg.Length(math.Cos(start)), Y: center.Y + r*vg.Length(math.Sin(start))})
	}
	const quarter = math.Pi / 2
	for remaining := sweep; math.Abs(remaining) > 1e-12; {
		step := math.Copysign(math.Min(math.Abs(remaining), quarter), remaining)
		p.Arc(center, r, start, step)
		start += step
		remaining -= step
	}
	p.Close()
	return p
}
