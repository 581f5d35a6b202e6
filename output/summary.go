package output

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/timeseries"
)

// DefaultHistogramBins is the bin count of the distribution report.
const DefaultHistogramBins = 10

// YearSummary is the five-number summary of one statistic over a calendar year.
type YearSummary struct {
	Year   int     `csv:"year"`
	Count  int     `csv:"count"`
	Min    float64 `csv:"min"`
	Q1     float64 `csv:"q1"`
	Median float64 `csv:"median"`
	Q3     float64 `csv:"q3"`
	Max    float64 `csv:"max"`
}

type HistogramBin struct {
	Lower float64 `csv:"lower"`
	Upper float64 `csv:"upper"`
	Count int     `csv:"count"`
}

// Summarize groups the non-empty values of s by year. Years without values are omitted.
func Summarize(rows []timeseries.Row, s reducer.Statistic) ([]YearSummary, error) {
	byYear := map[int]stats.Float64Data{}
	for _, r := range rows {
		v, ok := r.Get(s)
		if !ok {
			continue
		}
		if len(r.Date) < 4 {
			return nil, fmt.Errorf("invalid date %q", r.Date)
		}
		year, err := strconv.Atoi(r.Date[:4])
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", r.Date, err)
		}
		byYear[year] = append(byYear[year], v)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearSummary, 0, len(years))
	for _, y := range years {
		data := byYear[y]
		ys := YearSummary{Year: y, Count: data.Len()}
		var err error
		if ys.Min, err = data.Min(); err != nil {
			return nil, err
		}
		if ys.Max, err = data.Max(); err != nil {
			return nil, err
		}
		if ys.Median, err = data.Median(); err != nil {
			return nil, err
		}
		if ys.Q1, err = stats.PercentileNearestRank(data, 25); err != nil {
			return nil, err
		}
		if ys.Q3, err = stats.PercentileNearestRank(data, 75); err != nil {
			return nil, err
		}
		out = append(out, ys)
	}
	return out, nil
}

// Histogram counts values into equal-width bins spanning their range. The last bin includes
// its upper edge. NaN values are skipped. A constant series is centered in a unit-wide range.
func Histogram(values []float64, bins int) []HistogramBin {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	var data []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return nil
	}
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i] = HistogramBin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	out[bins-1].Upper = hi
	for _, v := range data {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// SaveCSV writes any slice of csv-tagged structs to path.
func SaveCSV(path string, in interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	if err := gocsv.MarshalFile(in, file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
