package bandmath

import (
	"image/color"
	"math"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/properties"
)

// Palette is a color ramp with evenly spaced stops between a min and max value.
type Palette []color.RGBA

// NDVIPalette returns the fixed 17-stop diverging ramp.
func NDVIPalette() Palette {
	p := make(Palette, len(properties.NDVIPalette))
	for i, c := range properties.NDVIPalette {
		p[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	return p
}

// Stops returns the value of every color stop when the ramp spans [min, max].
func (p Palette) Stops(min, max float64) []float64 {
	if len(p) == 1 {
		return []float64{min}
	}
	stops := make([]float64, len(p))
	step := (max - min) / float64(len(p)-1)
	for i := range stops {
		stops[i] = min + float64(i)*step
	}
	return stops
}

// At maps v to a color, clamping to [min, max] and interpolating linearly between stops.
func (p Palette) At(v, min, max float64) color.RGBA {
	if len(p) == 0 {
		return color.RGBA{}
	}
	if len(p) == 1 || max <= min {
		return p[0]
	}
	t := (math.Max(min, math.Min(max, v)) - min) / (max - min)
	pos := t * float64(len(p)-1)
	i := int(math.Floor(pos))
	if i >= len(p)-1 {
		return p[len(p)-1]
	}
	frac := pos - float64(i)
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*frac))
	}
	a, b := p[i], p[i+1]
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}
