package memory

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/paulmach/orb"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/raster"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
)

// SyntheticOptions controls the offline scene generator.
type SyntheticOptions struct {
	Start time.Time
	End   time.Time
	// Revisit is the number of days between acquisitions.
	Revisit int
	Width   int
	Height  int
	// Seed drives the generated values and is part of every image ID, so scenes from
	// different seeds never share checkpoints.
	Seed int64
}

// Synthetic builds a seasonal series of Sentinel-2 like scenes covering r. NDVI follows a
// yearly cycle peaking in the southern summer, with pixel noise, random cloud cover and a
// share of non-vegetation pixels in the scene classification band.
func Synthetic(r region.Region, opts SyntheticOptions) []*raster.Image {
	if opts.Revisit <= 0 {
		opts.Revisit = 5
	}
	if opts.Width <= 0 {
		opts.Width = 32
	}
	if opts.Height <= 0 {
		opts.Height = 32
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	bound := r.Bound().Pad(0.001)
	var images []*raster.Image
	for t := opts.Start; t.Before(opts.End); t = t.AddDate(0, 0, opts.Revisit) {
		img := raster.New(fmt.Sprintf("S2_SYN_%s_%x", t.Format("20060102"), opts.Seed), t, opts.Width, opts.Height, bound)
		img.CloudCover = math.Round(rng.Float64()*600) / 10

		season := 0.55 + 0.25*math.Cos(2*math.Pi*float64(t.YearDay()-15)/365)
		n := img.Len()
		nir := make([]float64, n)
		red := make([]float64, n)
		scl := make([]float64, n)
		for i := 0; i < n; i++ {
			ndvi := math.Max(-0.95, math.Min(0.95, season+rng.NormFloat64()*0.05))
			red[i] = 0.05 + rng.Float64()*0.05
			nir[i] = red[i] * (1 + ndvi) / (1 - ndvi)
			scl[i] = bandmath.VegetationClass
			if rng.Float64() < 0.1 {
				scl[i] = 5
			}
		}
		_ = img.SetBand(bandmath.BandNIR, nir)
		_ = img.SetBand(bandmath.BandRed, red)
		_ = img.SetBand(bandmath.BandSCL, scl)
		images = append(images, img)
	}
	return images
}

// Uniform builds a size x size scene over bound with every band set to a constant.
func Uniform(id string, acquired time.Time, bound orb.Bound, size int, bands map[string]float64) *raster.Image {
	img := raster.New(id, acquired, size, size, bound)
	for name, v := range bands {
		img.Fill(name, v)
	}
	return img
}
