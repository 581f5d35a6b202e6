package output

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
)

// CreateRegionGeoJSON writes the region as a one-feature collection styled for map viewers:
// red outline, no fill.
func CreateRegionGeoJSON(r region.Region, name, outputPath string) error {
	if r.IsZero() {
		return fmt.Errorf("empty region")
	}
	feature := r.Feature()
	feature.Properties["name"] = name
	feature.Properties["stroke"] = "#ff0000"
	feature.Properties["stroke-width"] = 4
	feature.Properties["stroke-opacity"] = 1
	feature.Properties["fill-opacity"] = 0

	fc := geojson.NewFeatureCollection()
	fc.Append(feature)

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create GeoJSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	slog.Info("region GeoJSON saved", "path", outputPath)
	return nil
}
