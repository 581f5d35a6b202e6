// Package memory is an in-process imagery session over synthetic rasters. It evaluates band
// math, region reductions and composites locally, the same way the remote service would.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/raster"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
)

type Session struct {
	mu          sync.Mutex
	collections map[string][]*raster.Image
	faults      map[string][]error
	calls       map[string]int
}

var _ imagery.Session = (*Session)(nil)

// New returns a session exposing an empty Sentinel-2 L2A collection.
func New() *Session {
	return &Session{
		collections: map[string][]*raster.Image{imagery.Sentinel2L2A: nil},
		faults:      make(map[string][]error),
		calls:       make(map[string]int),
	}
}

// Add registers images under a collection id. Images keep their insertion order among equal
// acquisition times.
func (s *Session) Add(collection string, images ...*raster.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], images...)
}

// Fail queues errors returned by the next ReduceRegion calls for imageID, one per call.
func (s *Session) Fail(imageID string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[imageID] = append(s.faults[imageID], errs...)
}

// Calls returns how many times ReduceRegion was called for imageID.
func (s *Session) Calls(imageID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[imageID]
}

func (s *Session) Search(ctx context.Context, q imagery.Query) ([]imagery.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &imagery.RemoteQueryError{Collection: q.Collection(), Err: err}
	}
	rasters, err := s.match(q)
	if err != nil {
		return nil, err
	}
	out := make([]imagery.Image, len(rasters))
	for i, img := range rasters {
		out[i] = imagery.Image{ID: img.ID, Acquired: img.Acquired, CloudCover: img.CloudCover}
	}
	return out, nil
}

func (s *Session) match(q imagery.Query) ([]*raster.Image, error) {
	s.mu.Lock()
	all, ok := s.collections[q.Collection()]
	s.mu.Unlock()
	if !ok {
		return nil, &imagery.RemoteQueryError{Collection: q.Collection(), Err: imagery.ErrUnknownCollection}
	}

	bound := q.Region().Bound()
	lt, hasCloud := q.CloudCover()
	var out []*raster.Image
	for _, img := range all {
		if !img.Bounds.Intersects(bound) {
			continue
		}
		if hasCloud && img.CloudCover >= lt {
			continue
		}
		if img.Acquired.Before(q.Start()) || !img.Acquired.Before(q.End()) {
			continue
		}
		out = append(out, img)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Acquired.Before(out[j].Acquired)
	})
	return out, nil
}

func (s *Session) lookup(collection, id string) (*raster.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	if queued := s.faults[id]; len(queued) > 0 {
		s.faults[id] = queued[1:]
		return nil, queued[0]
	}
	for _, img := range s.collections[collection] {
		if img.ID == id {
			return img, nil
		}
	}
	return nil, imagery.ErrImageNotFound
}

// ReduceRegion samples the pixels whose centers fall inside the region. Images are held at
// their native grid, so the request scale does not resample them.
func (s *Session) ReduceRegion(ctx context.Context, req imagery.ReduceRequest) (reducer.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &imagery.RemoteComputeError{Op: "reduce", Image: req.Image.ID, Transient: true, Err: err}
	}
	src, err := s.lookup(req.Collection, req.Image.ID)
	if err != nil {
		return nil, computeError("reduce", req.Image.ID, err)
	}

	img, err := req.Transforms.Apply(src)
	if err != nil {
		return nil, &imagery.RemoteComputeError{Op: "reduce", Image: req.Image.ID, Err: err}
	}
	values, ok := img.Band(req.Band)
	if !ok {
		return nil, &imagery.RemoteComputeError{Op: "reduce", Image: req.Image.ID,
			Err: fmt.Errorf("image has no %s band", req.Band)}
	}

	var sample []float64
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := y*img.Width + x
			if !img.Valid(i) || !req.Region.Contains(img.PixelCenter(x, y)) {
				continue
			}
			sample = append(sample, values[i])
		}
	}

	res, err := req.Reducer.Reduce(sample)
	if err != nil {
		return nil, &imagery.RemoteComputeError{Op: "reduce", Image: req.Image.ID, Err: err}
	}
	return res, nil
}

func computeError(op, id string, err error) error {
	if _, ok := err.(*imagery.RemoteComputeError); ok {
		return err
	}
	return &imagery.RemoteComputeError{Op: op, Image: id, Err: err}
}

// Thumbnail renders the per-pixel median of the mapped collection, clipped to the query
// region. Pixels outside the region, or without any valid observation, are transparent.
func (s *Session) Thumbnail(ctx context.Context, req imagery.ThumbnailRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &imagery.RemoteComputeError{Op: "thumbnail", Transient: true, Err: err}
	}
	q := req.Query
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sources, err := s.match(q)
	if err != nil {
		return nil, err
	}

	mapped := make([]*raster.Image, 0, len(sources))
	for _, src := range sources {
		img, err := q.Transforms().Apply(src)
		if err != nil {
			return nil, &imagery.RemoteComputeError{Op: "thumbnail", Image: src.ID, Err: err}
		}
		if _, ok := img.Band(req.Band); !ok {
			return nil, &imagery.RemoteComputeError{Op: "thumbnail", Image: src.ID,
				Err: fmt.Errorf("image has no %s band", req.Band)}
		}
		mapped = append(mapped, img)
	}

	w, h := req.Dimensions()
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	r := q.Region()
	grid := raster.New("thumbnail", q.Start(), w, h, r.Bound())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := grid.PixelCenter(x, y)
			if !r.Contains(p) {
				continue
			}
			v, ok := median(mapped, req.Band, p)
			if !ok {
				continue
			}
			canvas.SetRGBA(x, y, req.Palette.At(v, req.Min, req.Max))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func median(images []*raster.Image, band string, p orb.Point) (float64, bool) {
	var values stats.Float64Data
	for _, img := range images {
		i, ok := img.Index(p)
		if !ok || !img.Valid(i) {
			continue
		}
		v := img.Bands[band][i]
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return 0, false
	}
	m, err := stats.Median(values)
	if err != nil {
		return 0, false
	}
	return m, true
}
