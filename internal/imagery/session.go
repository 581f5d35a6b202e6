package imagery

import (
	"context"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
)

// Session is a connection to the remote processing service. It is created once by the entry
// point and passed to every component that needs it.
type Session interface {
	// Search lists the images matching q. Ordering is not guaranteed.
	Search(ctx context.Context, q Query) ([]Image, error)
	// ReduceRegion runs one combined reduction of a band over the region. A nil result means
	// the region had no valid pixels.
	ReduceRegion(ctx context.Context, req ReduceRequest) (reducer.Result, error)
	// Thumbnail renders the median composite of a collection as PNG bytes.
	Thumbnail(ctx context.Context, req ThumbnailRequest) ([]byte, error)
}

type ReduceRequest struct {
	Image      Image
	Collection string
	Transforms bandmath.Chain
	Band       string
	Region     region.Region
	Reducer    reducer.Combined
	// Scale is the sample size in meters.
	Scale float64
	// MaxCloudCover limits the tiles the service may sample. Nil means no limit.
	MaxCloudCover *float64
}

type ThumbnailRequest struct {
	Query   Query
	Band    string
	Palette bandmath.Palette
	Min     float64
	Max     float64
	Width   int
	Height  int
}

// Dimensions returns the output size, defaulting to 512x512.
func (r ThumbnailRequest) Dimensions() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 512
	}
	if h <= 0 {
		h = 512
	}
	return w, h
}
