// Package output renders the artifacts of a finished run: chart, timelapse, region GeoJSON
// and distribution summaries.
package output

import (
	"fmt"
	"path/filepath"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/timeseries"
)

// Report lists the files written by WriteReport. Artifacts without input stay empty.
type Report struct {
	Chart     string
	Timelapse string
	Region    string
	Summary   string
	Histogram string
}

// WriteReport writes every artifact for a run named name into dir.
func WriteReport(dir, name string, r region.Region, rows []timeseries.Row, thumbnails []string) (Report, error) {
	var rep Report
	file := func(suffix string) string {
		return filepath.Join(dir, fmt.Sprintf("%s_%s", name, suffix))
	}

	rep.Region = file("region.geojson")
	if err := CreateRegionGeoJSON(r, name, rep.Region); err != nil {
		return rep, err
	}

	if len(rows) > 0 {
		rep.Chart = file("chart.png")
		if err := CreateTimeSeriesChart(rows, rep.Chart); err != nil {
			return rep, err
		}

		summary, err := Summarize(rows, reducer.Mean)
		if err != nil {
			return rep, err
		}
		rep.Summary = file("yearly_summary.csv")
		if err := SaveCSV(rep.Summary, summary); err != nil {
			return rep, err
		}

		if bins := Histogram(Column(rows, reducer.Mean), DefaultHistogramBins); bins != nil {
			rep.Histogram = file("histogram.csv")
			if err := SaveCSV(rep.Histogram, bins); err != nil {
				return rep, err
			}
		}
	}

	if len(thumbnails) > 0 {
		rep.Timelapse = file("timelapse.gif")
		if err := CreateTimelapse(thumbnails, rep.Timelapse, DefaultFrameDelay); err != nil {
			return rep, err
		}
	}
	return rep, nil
}
