package region

import (
	"fmt"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb/geojson"
)

var registerDrivers sync.Once

// Load reads the first feature of a vector file (shapefile, GeoJSON or any OGR format).
// Coordinates are taken as stored; the file is expected to be in lon/lat.
func Load(path string) (Region, error) {
	if _, err := os.Stat(path); err != nil {
		return Region{}, &RegionLoadError{Path: path, Err: err}
	}

	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return Region{}, &RegionLoadError{Path: path, Err: err}
	}
	defer ds.Close()

	layers := ds.Layers()
	if len(layers) == 0 {
		return Region{}, &RegionLoadError{Path: path, Err: ErrNoFeatures}
	}

	feat := layers[0].NextFeature()
	if feat == nil {
		return Region{}, &RegionLoadError{Path: path, Err: ErrNoFeatures}
	}
	defer feat.Close()

	geom := feat.Geometry()
	if geom == nil || geom.Empty() {
		return Region{}, &RegionLoadError{Path: path, Err: ErrNotPolygon}
	}
	defer geom.Close()

	raw, err := geom.GeoJSON()
	if err != nil {
		return Region{}, &RegionLoadError{Path: path, Err: fmt.Errorf("export geometry: %w", err)}
	}
	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return Region{}, &RegionLoadError{Path: path, Err: fmt.Errorf("decode geometry: %w", err)}
	}

	r, err := FromGeometry(g.Geometry())
	if err != nil {
		if le, ok := err.(*RegionLoadError); ok {
			le.Path = path
		}
		return Region{}, err
	}
	return r, nil
}
