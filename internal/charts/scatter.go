package charts

import (
	"fmt"
	"html/template"
	"math"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	minBubble = 3
	maxBubble = 18
)

// Bubble is a labelled point whose radius and shade follow Size.
type Bubble struct {
	Label string
	X, Y  float64
	Size  float64
}

// Bubbles draws a labelled bubble scatter. Bubbles with a missing coordinate are skipped.
func Bubbles(bubbles []Bubble, scale Ramp, o Options) (template.HTML, error) {
	var kept []Bubble
	var peak float64
	for _, b := range bubbles {
		if math.IsNaN(b.X) || math.IsNaN(b.Y) {
			continue
		}
		kept = append(kept, b)
		if s := finite(b.Size); s > peak {
			peak = s
		}
	}
	if len(kept) == 0 {
		return "", ErrNoData
	}

	xys := make(plotter.XYs, len(kept))
	names := make([]string, len(kept))
	for i, b := range kept {
		xys[i] = plotter.XY{X: b.X, Y: b.Y}
		names[i] = b.Label
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return "", fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		f := 0.0
		if peak > 0 {
			f = math.Sqrt(finite(kept[i].Size) / peak)
		}
		return draw.GlyphStyle{
			Color:  scale.At(0.3 + 0.7*f),
			Radius: vg.Points(minBubble + (maxBubble-minBubble)*f),
			Shape:  draw.CircleGlyph{},
		}
	}

	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return "", fmt.Errorf("scatter labels: %w", err)
	}
	for i := range lbls.TextStyle {
		lbls.TextStyle[i].Font.Size = vg.Points(7)
	}
	lbls.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(4)}

	p := newPlot(o)
	p.Add(plotter.NewGrid(), scatter, lbls)
	p.Y.Tick.Marker = compactMarker
	return render(p, o)
}
