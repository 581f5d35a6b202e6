package output

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/timeseries"
)

var nan = math.NaN()

func rows() []timeseries.Row {
	return []timeseries.Row{
		timeseries.NewRow("2023-01-05", reducer.Result{reducer.Mean: 0.1, reducer.Max: 0.4, reducer.Min: -0.1}),
		timeseries.NewRow("2023-02-10", nil),
		timeseries.NewRow("2023-03-01", reducer.Result{reducer.Mean: 0.3, reducer.Max: 0.6, reducer.Min: 0.1}),
		timeseries.NewRow("2023-06-20", reducer.Result{reducer.Mean: 0.5}),
		timeseries.NewRow("2023-09-14", reducer.Result{reducer.Mean: 0.7}),
		timeseries.NewRow("2024-01-02", reducer.Result{reducer.Mean: 0.2}),
	}
}

func square(t *testing.T) region.Region {
	t.Helper()
	r, err := region.FromGeometry(orb.Polygon{{{-48.1, -15.8}, {-48.0, -15.8}, {-48.0, -15.7}, {-48.1, -15.7}, {-48.1, -15.8}}})
	require.NoError(t, err)
	return r
}

func TestInterpolate(t *testing.T) {
	got := Interpolate([]float64{nan, 1, nan, nan, 4, nan})
	require.Len(t, got, 6)
	assert.True(t, math.IsNaN(got[0]), "leading gaps stay empty")
	assert.Equal(t, []float64{1, 2, 3, 4, 4}, got[1:])

	got = Interpolate([]float64{0.3, nan, nan})
	assert.Equal(t, []float64{0.3, 0.3, 0.3}, got, "trailing gaps repeat the last value")
	assert.True(t, math.IsNaN(Interpolate([]float64{nan, nan})[1]))

	in := []float64{nan, 2}
	Interpolate(in)
	assert.True(t, math.IsNaN(in[0]), "input is not modified")
}

func TestColumn(t *testing.T) {
	col := Column(rows(), reducer.Max)
	assert.Equal(t, 0.4, col[0])
	assert.True(t, math.IsNaN(col[1]))
	assert.Equal(t, 0.6, col[2])
}

func TestSummarize(t *testing.T) {
	got, err := Summarize(rows(), reducer.Mean)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 2023, got[0].Year)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, 0.1, got[0].Min)
	assert.Equal(t, 0.1, got[0].Q1)
	assert.InDelta(t, 0.4, got[0].Median, 1e-12)
	assert.Equal(t, 0.5, got[0].Q3)
	assert.Equal(t, 0.7, got[0].Max)

	assert.Equal(t, YearSummary{Year: 2024, Count: 1, Min: 0.2, Q1: 0.2, Median: 0.2, Q3: 0.2, Max: 0.2}, got[1])
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 0.5, 1, nan}, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, HistogramBin{Lower: 0, Upper: 0.5, Count: 1}, bins[0])
	assert.Equal(t, HistogramBin{Lower: 0.5, Upper: 1, Count: 2}, bins[1])

	bins = Histogram([]float64{0.3}, 0)
	require.Len(t, bins, DefaultHistogramBins)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 1, total)
	assert.InDelta(t, -0.2, bins[0].Lower, 1e-12)
	assert.InDelta(t, 0.8, bins[9].Upper, 1e-12)

	assert.Nil(t, Histogram([]float64{nan}, 10))
}

func TestCreateTimeSeriesChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "ndvi.png")
	require.NoError(t, CreateTimeSeriesChart(rows(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, chartWidth, cfg.Width)
	assert.Equal(t, chartHeight, cfg.Height)

	assert.Error(t, CreateTimeSeriesChart(nil, path))
	assert.Error(t, CreateTimeSeriesChart([]timeseries.Row{{Date: "05/01/2023"}}, path))
}

func TestCreateTimeSeriesChartSingleRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.png")
	require.NoError(t, CreateTimeSeriesChart(rows()[:1], path))
	assert.FileExists(t, path)
}

func writePNG(t *testing.T, path string, size int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size/2; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestCreateTimelapse(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "ndvi_202301.png")
	b := filepath.Join(dir, "ndvi_202302.png")
	writePNG(t, a, 8, color.RGBA{R: 255, A: 255})
	writePNG(t, b, 8, color.RGBA{G: 255, A: 255})

	out := filepath.Join(dir, "timelapse")
	require.NoError(t, CreateTimelapse([]string{a, b}, out, 0))

	f, err := os.Open(out + ".gif")
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	require.Len(t, anim.Image, 2)
	assert.Equal(t, []int{50, 50}, anim.Delay)

	r, _, _, alpha := anim.Image[0].At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), alpha)
	_, _, _, alpha = anim.Image[0].At(0, 7).RGBA()
	assert.Zero(t, alpha, "transparent pixels stay transparent")
}

func TestCreateTimelapseScalesFrames(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 8, color.White)
	writePNG(t, b, 16, color.White)

	out := filepath.Join(dir, "out.gif")
	require.NoError(t, CreateTimelapse([]string{a, b}, out, time.Second))
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	require.Len(t, anim.Image, 2)
	assert.Equal(t, image.Rect(0, 0, 8, 8), anim.Image[1].Bounds())
	assert.Equal(t, []int{100, 100}, anim.Delay)

	assert.Error(t, CreateTimelapse(nil, out, time.Second))
	assert.Error(t, CreateTimelapse([]string{filepath.Join(dir, "missing.png")}, out, time.Second))
}

func TestCreateRegionGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batista.geojson")
	require.NoError(t, CreateRegionGeoJSON(square(t), "batista", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n  "), "output is indented")

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "Polygon", f.Geometry.GeoJSONType())
	assert.Equal(t, "batista", f.Properties["name"])
	assert.Equal(t, "#ff0000", f.Properties["stroke"])
	assert.Equal(t, 4.0, f.Properties["stroke-width"])
	assert.Equal(t, 0.0, f.Properties["fill-opacity"])

	assert.Error(t, CreateRegionGeoJSON(region.Region{}, "empty", path))
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	thumb := filepath.Join(dir, "ndvi_202301.png")
	writePNG(t, thumb, 8, color.White)

	rep, err := WriteReport(filepath.Join(dir, "report"), "batista", square(t), rows(), []string{thumb})
	require.NoError(t, err)
	for _, path := range []string{rep.Chart, rep.Timelapse, rep.Region, rep.Summary, rep.Histogram} {
		assert.FileExists(t, path)
	}

	summary, err := os.ReadFile(rep.Summary)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(summary), "year,count,min,q1,median,q3,max\n"))

	rep, err = WriteReport(filepath.Join(dir, "empty"), "batista", square(t), nil, nil)
	require.NoError(t, err)
	assert.FileExists(t, rep.Region)
	assert.Empty(t, rep.Chart)
	assert.Empty(t, rep.Timelapse)
}
