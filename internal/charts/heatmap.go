package charts

import (
	"html/template"
	"image/color"
	"math"

	"gonum.org/v1/plot/plotter"
)

// Grid is a labelled matrix. Cells[r][c] may be NaN for empty pairs.
type Grid struct {
	Rows  []string
	Cols  []string
	Cells [][]float64
}

// gridXYZ adapts Grid to plotter.GridXYZ with the first row drawn on top.
type gridXYZ struct {
	g        Grid
	min, max float64
}

func (g gridXYZ) Dims() (c, r int)   { return len(g.g.Cols), len(g.g.Rows) }
func (g gridXYZ) X(c int) float64    { return float64(c) }
func (g gridXYZ) Y(r int) float64    { return float64(r) }
func (g gridXYZ) Z(c, r int) float64 { return g.g.Cells[len(g.g.Rows)-1-r][c] }
func (g gridXYZ) Min() float64       { return g.min }
func (g gridXYZ) Max() float64       { return g.max }

func newGridXYZ(g Grid) gridXYZ {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range g.Cells {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	return gridXYZ{g: g, min: lo, max: hi}
}

// HeatMap shades every cell on scale. Missing cells are left light grey.
func HeatMap(g Grid, scale Ramp, o Options) (template.HTML, error) {
	if len(g.Rows) == 0 || len(g.Cols) == 0 {
		return "", ErrNoData
	}
	grid := newGridXYZ(g)
	hm := plotter.NewHeatMap(grid, scale.Resample(32))
	hm.NaN = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	hm.Min, hm.Max = grid.min, grid.max

	p := newPlot(o)
	p.Add(hm)
	p.NominalX(g.Cols...)
	p.NominalY(reversed(g.Rows)...)
	return render(p, o)
}
