// Package reducer aggregates the pixels of one band inside a region into named statistics.
package reducer

import (
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
)

type Statistic string

const (
	Mean   Statistic = "mean"
	Min    Statistic = "min"
	Max    Statistic = "max"
	StdDev Statistic = "stdDev"
	Median Statistic = "median"
	P25    Statistic = "p25"
	P50    Statistic = "p50"
	P75    Statistic = "p75"
)

var percentiles = map[Statistic]float64{
	Median: 50,
	P25:    25,
	P50:    50,
	P75:    75,
}

// All lists every supported statistic in column order.
var All = []Statistic{Mean, Max, Min, Median, StdDev, P25, P50, P75}

func ParseStatistic(s string) (Statistic, error) {
	for _, st := range All {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown statistic %q", s)
}

// Percentile returns the percentile rank backing s, if any.
func (s Statistic) Percentile() (float64, bool) {
	k, ok := percentiles[s]
	return k, ok
}

// Result maps statistic names to values. A nil Result means the region had no valid pixels.
type Result map[Statistic]float64

func (r Result) Get(s Statistic) (float64, bool) {
	v, ok := r[s]
	return v, ok
}

// Combined is a set of statistics evaluated together over one shared sample.
type Combined struct {
	stats []Statistic
}

// Combine builds a combined reducer. Duplicates are dropped, order is kept.
func Combine(list ...Statistic) Combined {
	seen := make(map[Statistic]struct{}, len(list))
	var out []Statistic
	for _, s := range list {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return Combined{stats: out}
}

func (c Combined) Statistics() []Statistic {
	return append([]Statistic(nil), c.stats...)
}

func (c Combined) Empty() bool {
	return len(c.stats) == 0
}

// Percentiles lists the distinct percentile ranks the combination needs.
func (c Combined) Percentiles() []float64 {
	var ks []float64
	seen := make(map[float64]struct{})
	for _, s := range c.stats {
		k, ok := s.Percentile()
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		ks = append(ks, k)
	}
	return ks
}

func (c Combined) String() string {
	names := make([]string, len(c.stats))
	for i, s := range c.stats {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}

// Reduce evaluates every statistic over the same sample. NaN values are no-data and are
// dropped once, before any statistic runs. An empty sample yields a nil Result.
//
// Quartiles use the nearest-rank method so that they are defined for any sample size;
// Median averages the two middle values of an even sample.
func (c Combined) Reduce(values []float64) (Result, error) {
	sample := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sample = append(sample, v)
		}
	}
	if len(sample) == 0 {
		return nil, nil
	}

	out := make(Result, len(c.stats))
	for _, s := range c.stats {
		v, err := reduce(s, sample)
		if err != nil {
			return nil, fmt.Errorf("reduce %s: %w", s, err)
		}
		out[s] = v
	}
	return out, nil
}

func reduce(s Statistic, sample stats.Float64Data) (float64, error) {
	switch s {
	case Mean:
		return stats.Mean(sample)
	case Min:
		return stats.Min(sample)
	case Max:
		return stats.Max(sample)
	case StdDev:
		return stats.StandardDeviationPopulation(sample)
	case Median:
		return stats.Median(sample)
	case P25, P50, P75:
		k, _ := s.Percentile()
		return stats.PercentileNearestRank(sample, k)
	}
	return 0, fmt.Errorf("unknown statistic %q", s)
}
