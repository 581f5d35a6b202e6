// Package region loads the parcel polygon that every statistic and thumbnail is clipped to.
package region

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// RegionLoadError reports a vector file that cannot provide a single polygon.
type RegionLoadError struct {
	Path string
	Err  error
}

func (e *RegionLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load region: %v", e.Err)
	}
	return fmt.Sprintf("load region from %s: %v", e.Path, e.Err)
}

func (e *RegionLoadError) Unwrap() error {
	return e.Err
}

var (
	ErrNoFeatures  = errors.New("vector file has no features")
	ErrNotPolygon  = errors.New("geometry is not a single polygon")
	ErrInvalidRing = errors.New("exterior ring is not closed or has fewer than 4 points")
)

// Region is an immutable polygon made of its exterior ring only. Interior rings of the
// source geometry are dropped.
type Region struct {
	polygon orb.Polygon
}

// FromGeometry keeps the exterior ring of a polygon. A multipolygon is accepted only
// when it has exactly one part.
func FromGeometry(g orb.Geometry) (Region, error) {
	var p orb.Polygon
	switch geom := g.(type) {
	case orb.Polygon:
		p = geom
	case orb.MultiPolygon:
		if len(geom) != 1 {
			return Region{}, &RegionLoadError{Err: fmt.Errorf("%w: multipolygon with %d parts", ErrNotPolygon, len(geom))}
		}
		p = geom[0]
	default:
		return Region{}, &RegionLoadError{Err: fmt.Errorf("%w: got %T", ErrNotPolygon, g)}
	}
	if len(p) == 0 {
		return Region{}, &RegionLoadError{Err: ErrInvalidRing}
	}

	ring := p[0]
	if len(ring) < 4 || !ring.Closed() {
		return Region{}, &RegionLoadError{Err: ErrInvalidRing}
	}

	exterior := make(orb.Ring, len(ring))
	copy(exterior, ring)
	return Region{polygon: orb.Polygon{exterior}}, nil
}

// Polygon returns a copy of the native polygon.
func (r Region) Polygon() orb.Polygon {
	return orb.Polygon{r.Ring()}
}

func (r Region) Ring() orb.Ring {
	if len(r.polygon) == 0 {
		return nil
	}
	out := make(orb.Ring, len(r.polygon[0]))
	copy(out, r.polygon[0])
	return out
}

func (r Region) IsZero() bool {
	return len(r.polygon) == 0
}

// Coordinates is the remote-service representation: a list of rings, each a list of
// [x, y] pairs. Only the exterior ring is present.
func (r Region) Coordinates() [][][]float64 {
	ring := r.Ring()
	coords := make([][]float64, len(ring))
	for i, p := range ring {
		coords[i] = []float64{p.X(), p.Y()}
	}
	return [][][]float64{coords}
}

func (r Region) Geometry() *geojson.Geometry {
	return geojson.NewGeometry(r.Polygon())
}

// Feature wraps the polygon with an empty property set.
func (r Region) Feature() *geojson.Feature {
	return geojson.NewFeature(r.Polygon())
}

func (r Region) Bound() orb.Bound {
	return r.polygon.Bound()
}

func (r Region) Contains(p orb.Point) bool {
	return planar.PolygonContains(r.polygon, p)
}

// Centroid returns the area-weighted center of the polygon.
func (r Region) Centroid() (orb.Point, error) {
	centroid, area := planar.CentroidArea(r.polygon)
	if area <= 0 {
		return orb.Point{}, errors.New("region has no area")
	}
	return centroid, nil
}

func (r Region) WKT() string {
	return wkt.MarshalString(r.polygon)
}

// Fingerprint identifies the polygon in cache keys.
func (r Region) Fingerprint() string {
	h := sha1.New()
	h.Write([]byte(r.WKT()))
	return hex.EncodeToString(h.Sum(nil))
}
