package reducer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []float64{0.12, 0.48, 0.33, math.NaN(), 0.71, -0.05, 0.33, 0.9, 0.27}

func TestCombinedMatchesSingleReducers(t *testing.T) {
	combined := Combine(All...)

	got, err := combined.Reduce(sample)
	require.NoError(t, err)
	require.Len(t, got, len(All))

	for _, s := range All {
		single, err := Combine(s).Reduce(sample)
		require.NoError(t, err)
		assert.Equal(t, single[s], got[s], "statistic %s", s)
	}
}

func TestReduceKnownValues(t *testing.T) {
	got, err := Combine(Mean, Min, Max, Median, StdDev).Reduce([]float64{1, 2, 3, 4, math.NaN()})
	require.NoError(t, err)

	assert.Equal(t, 2.5, got[Mean])
	assert.Equal(t, 1.0, got[Min])
	assert.Equal(t, 4.0, got[Max])
	assert.Equal(t, 2.5, got[Median])
	assert.InDelta(t, math.Sqrt(1.25), got[StdDev], 1e-12)
}

func TestReduceUniform(t *testing.T) {
	got, err := Combine(All...).Reduce([]float64{0.6, 0.6, 0.6, 0.6})
	require.NoError(t, err)
	for _, s := range All {
		if s == StdDev {
			assert.InDelta(t, 0.0, got[s], 1e-12)
			continue
		}
		assert.InDelta(t, 0.6, got[s], 1e-12, "statistic %s", s)
	}
}

func TestReduceEmptySampleIsMissing(t *testing.T) {
	got, err := Combine(Mean).Reduce(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Combine(Mean).Reduce([]float64{math.NaN(), math.NaN()})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCombineDropsDuplicates(t *testing.T) {
	c := Combine(Mean, Median, Mean, P50, P25)
	assert.Equal(t, []Statistic{Mean, Median, P50, P25}, c.Statistics())
	assert.Equal(t, []float64{50, 25}, c.Percentiles())
	assert.Equal(t, "mean,median,p50,p25", c.String())
	assert.False(t, c.Empty())
	assert.True(t, Combine().Empty())
}

func TestParseStatistic(t *testing.T) {
	s, err := ParseStatistic("STDDEV")
	require.NoError(t, err)
	assert.Equal(t, StdDev, s)

	_, err = ParseStatistic("mode")
	assert.Error(t, err)
}

func TestPercentilesOnTinySamples(t *testing.T) {
	got, err := Combine(P25, P50, P75, Median).Reduce([]float64{0.2, 0.4})
	require.NoError(t, err)
	assert.Equal(t, 0.2, got[P25])
	assert.Equal(t, 0.2, got[P50])
	assert.Equal(t, 0.4, got[P75])
	assert.InDelta(t, 0.3, got[Median], 1e-12)

	got, err = Combine(P25, P75).Reduce([]float64{0.7})
	require.NoError(t, err)
	assert.Equal(t, 0.7, got[P25])
	assert.Equal(t, 0.7, got[P75])
}
