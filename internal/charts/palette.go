package charts

import (
	"fmt"
	"image/color"
	"math"
)

// Sequential ramps, light to dark.
var (
	Purples = Ramp{
		rgb(0xfc, 0xfb, 0xfd), rgb(0xef, 0xed, 0xf5), rgb(0xda, 0xda, 0xeb),
		rgb(0xbc, 0xbd, 0xdc), rgb(0x9e, 0x9a, 0xc8), rgb(0x80, 0x7d, 0xba),
		rgb(0x6a, 0x51, 0xa3), rgb(0x54, 0x27, 0x8f), rgb(0x3f, 0x00, 0x7d),
	}
	Blues = Ramp{
		rgb(0xf7, 0xfb, 0xff), rgb(0xc6, 0xdb, 0xef), rgb(0x6b, 0xae, 0xd6),
		rgb(0x21, 0x71, 0xb5), rgb(0x08, 0x30, 0x6b),
	}
	Viridis = Ramp{
		rgb(0x44, 0x01, 0x54), rgb(0x3b, 0x52, 0x8b), rgb(0x21, 0x91, 0x8c),
		rgb(0x5e, 0xc9, 0x62), rgb(0xfd, 0xe7, 0x25),
	}
	RdPu = Ramp{
		rgb(0xfd, 0xe0, 0xdd), rgb(0xfa, 0x9f, 0xb5), rgb(0xf7, 0x68, 0xa1),
		rgb(0xc5, 0x1b, 0x8a), rgb(0x7a, 0x01, 0x77),
	}
)

// Accent is the single-series color of line charts.
var Accent = rgb(0x7d, 0x33, 0xff)

// Ramp is a piecewise linear color scale. It satisfies palette.Palette.
type Ramp []color.Color

// Colors returns the ramp stops.
func (r Ramp) Colors() []color.Color { return r }

// At interpolates the ramp at f in [0,1].
func (r Ramp) At(f float64) color.Color {
	if len(r) == 0 {
		return color.Black
	}
	if math.IsNaN(f) || f <= 0 {
		return r[0]
	}
	if f >= 1 {
		return r[len(r)-1]
	}
	pos := f * float64(len(r)-1)
	i := int(pos)
	frac := pos - float64(i)
	a := color.RGBAModel.Convert(r[i]).(color.RGBA)
	b := color.RGBAModel.Convert(r[i+1]).(color.RGBA)
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*frac)) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

// Steps returns n evenly spaced colors from the ramp, darkest first.
func (r Ramp) Steps(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		f := 1.0
		if n > 1 {
			f = 1 - 0.8*float64(i)/float64(n-1)
		}
		out[i] = r.At(f)
	}
	return out
}

// Resample returns n colors evenly spaced along the ramp, light to dark.
func (r Ramp) Resample(n int) Ramp {
	out := make(Ramp, n)
	for i := range out {
		f := 0.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		out[i] = r.At(f)
	}
	return out
}

// Hex renders c as #rrggbb.
func Hex(c color.Color) string {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

func rgb(r, g, b uint8) color.Color { return color.RGBA{R: r, G: g, B: b, A: 0xff} }
