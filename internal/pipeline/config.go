// Package pipeline wires region loading, collection queries, statistics extraction and
// thumbnail export into one configurable NDVI run.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/thumbnail"
)

const (
	FullStatistics = "full-statistics"
	MaskedMean     = "masked-mean"

	DefaultCloudCover = 20.0
	DefaultRegionPath = "data/raw/batista.shp"
	DefaultOutputDir  = "output"
	DefaultTableName  = "ndvi_timeseries.csv"
)

// Config is every option of a run. The named presets only differ in the values they set.
type Config struct {
	Name       string
	RegionPath string
	Collection string
	Start      time.Time
	// End is exclusive.
	End        time.Time
	CloudCover float64
	// Mask applies the vegetation mask after NDVI, before reduction.
	Mask       bool
	Statistics []reducer.Statistic
	Band       string
	Scale      float64
	Workers    int
	Retry      imagery.RetryPolicy

	OutputDir       string
	TableName       string
	ThumbnailPrefix string
	Months          int
	// Checkpoints enables the per-image reduction cache under OutputDir.
	Checkpoints bool
	// Report writes the chart, timelapse, region GeoJSON and summary after a run.
	Report bool
}

func date(s string) time.Time {
	t, err := time.Parse(imagery.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func base(name string) Config {
	return Config{
		Name:            name,
		RegionPath:      DefaultRegionPath,
		Collection:      imagery.Sentinel2L2A,
		CloudCover:      DefaultCloudCover,
		Band:            bandmath.BandNDVI,
		Scale:           imagery.DefaultScale,
		Workers:         1,
		Retry:           imagery.DefaultRetryPolicy(),
		OutputDir:       DefaultOutputDir,
		TableName:       DefaultTableName,
		ThumbnailPrefix: thumbnail.DefaultPrefix,
		Months:          thumbnail.DefaultMonths,
		Checkpoints:     true,
	}
}

var presets = map[string]func() Config{
	// Mean, min, max, standard deviation and median over one year, without the vegetation mask.
	FullStatistics: func() Config {
		c := base(FullStatistics)
		c.Start = date("2023-01-01")
		c.End = c.Start.AddDate(1, 0, 0)
		c.Statistics = []reducer.Statistic{reducer.Mean, reducer.Min, reducer.Max, reducer.StdDev, reducer.Median}
		c.Report = true
		return c
	},
	// Mean of vegetation pixels only.
	MaskedMean: func() Config {
		c := base(MaskedMean)
		c.Start = date("2024-02-01")
		c.End = date("2024-05-01")
		c.Mask = true
		c.Statistics = []reducer.Statistic{reducer.Mean}
		return c
	},
}

// Preset returns a copy of a named configuration.
func Preset(name string) (Config, error) {
	p, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown preset %q, expected one of %v", name, PresetNames())
	}
	return p(), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithStart moves the date range to start, keeping its length in whole days.
func (c Config) WithStart(start time.Time) Config {
	days := int(c.End.Sub(c.Start).Hours() / 24)
	c.Start = start
	c.End = start.AddDate(0, 0, days)
	return c
}

func (c Config) Validate() error {
	var errs []error
	if c.RegionPath == "" {
		errs = append(errs, errors.New("region path is required"))
	}
	if c.Collection == "" {
		errs = append(errs, errors.New("collection is required"))
	}
	if !c.End.After(c.Start) {
		errs = append(errs, fmt.Errorf("end %s must be after start %s", c.End.Format(imagery.DateLayout), c.Start.Format(imagery.DateLayout)))
	}
	if c.CloudCover < 0 || c.CloudCover > 100 {
		errs = append(errs, fmt.Errorf("cloud cover %g is outside 0-100", c.CloudCover))
	}
	if len(c.Statistics) == 0 {
		errs = append(errs, errors.New("at least one statistic is required"))
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %g", c.Scale))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Months < 1 {
		errs = append(errs, fmt.Errorf("months must be at least 1, got %d", c.Months))
	}
	return errors.Join(errs...)
}

// Transforms is NDVI, followed by the vegetation mask when Mask is set.
func (c Config) Transforms() []bandmath.Transform {
	ts := []bandmath.Transform{bandmath.CalculateNDVI()}
	if c.Mask {
		ts = append(ts, bandmath.VegetationMask())
	}
	return ts
}

// ThumbnailQuery is Query without the vegetation mask: monthly composites always show the
// whole parcel.
func (c Config) ThumbnailQuery(r region.Region) imagery.Query {
	return imagery.NewQuery(c.Collection).
		FilterBounds(r).
		FilterCloudCover(c.CloudCover).
		FilterDate(c.Start, c.End).
		Map(bandmath.CalculateNDVI())
}

func (c Config) Reducer() reducer.Combined {
	return reducer.Combine(c.Statistics...)
}

// Query describes the run's collection over r. Nothing is resolved until it is collected.
func (c Config) Query(r region.Region) imagery.Query {
	return imagery.NewQuery(c.Collection).
		FilterBounds(r).
		FilterCloudCover(c.CloudCover).
		FilterDate(c.Start, c.End).
		Map(c.Transforms()...)
}
