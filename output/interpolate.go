package output

import (
	"math"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/timeseries"
)

// Column returns one statistic of every row, NaN where the cell is empty.
func Column(rows []timeseries.Row, s reducer.Statistic) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		v, ok := r.Get(s)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// Interpolate fills NaN gaps between two known values linearly by position. Gaps after the
// last known value repeat it. Gaps before the first known value are left as NaN.
func Interpolate(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)

	prev := -1
	for i, v := range out {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - out[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				out[j] = out[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev >= 0 {
		for j := prev + 1; j < len(out); j++ {
			out[j] = out[prev]
		}
	}
	return out
}
