// Package raster holds in-memory multi-band images on a north-up geographic grid.
package raster

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Image is a set of named float bands sharing one grid. Row 0 is the northern edge.
type Image struct {
	ID         string
	Acquired   time.Time
	CloudCover float64
	Width      int
	Height     int
	Bounds     orb.Bound
	Bands      map[string][]float64
	// Mask marks valid pixels for every band. A nil mask means all pixels are valid.
	Mask []bool
}

func New(id string, acquired time.Time, width, height int, bounds orb.Bound) *Image {
	return &Image{
		ID:       id,
		Acquired: acquired,
		Width:    width,
		Height:   height,
		Bounds:   bounds,
		Bands:    make(map[string][]float64),
	}
}

func (img *Image) Len() int {
	return img.Width * img.Height
}

func (img *Image) SetBand(name string, values []float64) error {
	if len(values) != img.Len() {
		return fmt.Errorf("band %s has %d values, image has %d pixels", name, len(values), img.Len())
	}
	img.Bands[name] = values
	return nil
}

// Fill sets every pixel of band name to v.
func (img *Image) Fill(name string, v float64) *Image {
	values := make([]float64, img.Len())
	for i := range values {
		values[i] = v
	}
	img.Bands[name] = values
	return img
}

func (img *Image) Band(name string) ([]float64, bool) {
	values, ok := img.Bands[name]
	return values, ok
}

// Valid reports whether pixel i is unmasked.
func (img *Image) Valid(i int) bool {
	if img.Mask == nil {
		return true
	}
	return img.Mask[i]
}

// UpdateMask combines keep with the current mask. Pixels already masked stay masked.
func (img *Image) UpdateMask(keep []bool) error {
	if len(keep) != img.Len() {
		return fmt.Errorf("mask has %d values, image has %d pixels", len(keep), img.Len())
	}
	mask := make([]bool, img.Len())
	for i := range mask {
		mask[i] = img.Valid(i) && keep[i]
	}
	img.Mask = mask
	return nil
}

// Clone returns a deep copy so transforms never mutate their input.
func (img *Image) Clone() *Image {
	out := *img
	out.Bands = make(map[string][]float64, len(img.Bands))
	for name, values := range img.Bands {
		out.Bands[name] = append([]float64(nil), values...)
	}
	if img.Mask != nil {
		out.Mask = append([]bool(nil), img.Mask...)
	}
	return &out
}

func (img *Image) pixelSize() (float64, float64) {
	return (img.Bounds.Max.X() - img.Bounds.Min.X()) / float64(img.Width),
		(img.Bounds.Max.Y() - img.Bounds.Min.Y()) / float64(img.Height)
}

// PixelCenter returns the geographic center of pixel (x, y).
func (img *Image) PixelCenter(x, y int) orb.Point {
	dx, dy := img.pixelSize()
	return orb.Point{
		img.Bounds.Min.X() + (float64(x)+0.5)*dx,
		img.Bounds.Max.Y() - (float64(y)+0.5)*dy,
	}
}

// Index returns the linear index of the pixel covering p.
func (img *Image) Index(p orb.Point) (int, bool) {
	if !img.Bounds.Contains(p) {
		return 0, false
	}
	dx, dy := img.pixelSize()
	x := int(math.Floor((p.X() - img.Bounds.Min.X()) / dx))
	y := int(math.Floor((img.Bounds.Max.Y() - p.Y()) / dy))
	if x == img.Width {
		x--
	}
	if y == img.Height {
		y--
	}
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return 0, false
	}
	return y*img.Width + x, true
}
