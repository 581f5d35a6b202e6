// Package bandmath contains the per-image transforms mapped over an image collection.
//
// Every transform has two renditions: Apply runs it on an in-memory raster, Script emits the
// equivalent evalscript statements for the remote processing service. Both must agree.
package bandmath

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/raster"
)

const (
	BandNIR  = "B08"
	BandRed  = "B04"
	BandSCL  = "SCL"
	BandNDVI = "NDVI"

	// VegetationClass is the scene-classification code for vegetation.
	VegetationClass = 4
)

// Transform is a pure per-image operation.
//
// Script statements run inside mapSample(sample) where `sample` holds source bands,
// `band` collects derived bands and `valid` is the pixel mask.
type Transform interface {
	Name() string
	Inputs() []string
	Apply(img *raster.Image) (*raster.Image, error)
	Script() string
}

// NDVI returns (nir-red)/(nir+red). The second result is false when the index is
// undefined (nir+red == 0), in which case the value is NaN.
func NDVI(nir, red float64) (float64, bool) {
	sum := nir + red
	if sum == 0 || math.IsNaN(sum) {
		return math.NaN(), false
	}
	return (nir - red) / sum, true
}

type ndviTransform struct{}

// CalculateNDVI adds the NDVI band computed from B08 and B04, keeping all existing bands.
func CalculateNDVI() Transform {
	return ndviTransform{}
}

func (ndviTransform) Name() string { return "ndvi" }

func (ndviTransform) Inputs() []string { return []string{BandNIR, BandRed} }

func (ndviTransform) Apply(img *raster.Image) (*raster.Image, error) {
	nir, ok := img.Band(BandNIR)
	if !ok {
		return nil, fmt.Errorf("image %s has no %s band", img.ID, BandNIR)
	}
	red, ok := img.Band(BandRed)
	if !ok {
		return nil, fmt.Errorf("image %s has no %s band", img.ID, BandRed)
	}

	out := img.Clone()
	ndvi := make([]float64, img.Len())
	for i := range ndvi {
		ndvi[i], _ = NDVI(nir[i], red[i])
	}
	if err := out.SetBand(BandNDVI, ndvi); err != nil {
		return nil, err
	}
	return out, nil
}

func (ndviTransform) Script() string {
	return fmt.Sprintf(`var sum = sample.%[1]s + sample.%[2]s;
band.%[3]s = sum == 0 ? NaN : (sample.%[1]s - sample.%[2]s) / sum;`, BandNIR, BandRed, BandNDVI)
}

type vegetationMask struct{}

// VegetationMask masks every pixel whose scene classification is not vegetation.
func VegetationMask() Transform {
	return vegetationMask{}
}

func (vegetationMask) Name() string { return "vegetation-mask" }

func (vegetationMask) Inputs() []string { return []string{BandSCL} }

func (vegetationMask) Apply(img *raster.Image) (*raster.Image, error) {
	scl, ok := img.Band(BandSCL)
	if !ok {
		return nil, fmt.Errorf("image %s has no %s band", img.ID, BandSCL)
	}

	out := img.Clone()
	keep := make([]bool, img.Len())
	for i, class := range scl {
		keep[i] = class == VegetationClass
	}
	if err := out.UpdateMask(keep); err != nil {
		return nil, err
	}
	return out, nil
}

func (vegetationMask) Script() string {
	return fmt.Sprintf("if (sample.%s != %d) { valid = false; }", BandSCL, VegetationClass)
}

// Chain applies transforms in order.
type Chain []Transform

func (c Chain) Apply(img *raster.Image) (*raster.Image, error) {
	out := img
	for _, t := range c {
		var err error
		out, err = t.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return out, nil
}

// Inputs lists the source bands every transform needs, sorted and deduplicated.
func (c Chain) Inputs() []string {
	seen := make(map[string]struct{})
	var bands []string
	for _, t := range c {
		for _, b := range t.Inputs() {
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			bands = append(bands, b)
		}
	}
	sort.Strings(bands)
	return bands
}

func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name()
	}
	return names
}

// SampleFunction renders the chain as the evalscript function mapSample(sample), returning
// {band: {...}, valid: bool}.
func (c Chain) SampleFunction() string {
	var b strings.Builder
	b.WriteString("function mapSample(sample) {\n")
	b.WriteString("  var band = {};\n")
	b.WriteString("  var valid = sample.dataMask == 1;\n")
	for _, t := range c {
		fmt.Fprintf(&b, "  // %s\n", t.Name())
		for _, line := range strings.Split(t.Script(), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	b.WriteString("  return {band: band, valid: valid};\n")
	b.WriteString("}\n")
	return b.String()
}
