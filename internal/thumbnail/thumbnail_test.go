package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery/memory"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
)

var fast = imagery.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthRanges(t *testing.T) {
	months := MonthRanges(date(2023, 11, 17), 3)
	require.Len(t, months, 3)
	assert.Equal(t, MonthRange{Start: date(2023, 11, 1), End: date(2023, 12, 1)}, months[0])
	assert.Equal(t, MonthRange{Start: date(2023, 12, 1), End: date(2024, 1, 1)}, months[1])
	assert.Equal(t, MonthRange{Start: date(2024, 1, 1), End: date(2024, 2, 1)}, months[2])
	assert.Equal(t, "202401", months[2].Label())
}

func TestMonthRangesCoverLastDay(t *testing.T) {
	for _, m := range MonthRanges(date(2023, 1, 1), 12) {
		last := m.End.AddDate(0, 0, -1).Add(23 * time.Hour)
		assert.True(t, last.Before(m.End) && !last.Before(m.Start), "month %s", m.Label())
	}
}

func square(t *testing.T) region.Region {
	t.Helper()
	r, err := region.FromGeometry(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	require.NoError(t, err)
	return r
}

func baseQuery(t *testing.T) imagery.Query {
	return imagery.NewQuery(imagery.Sentinel2L2A).
		FilterBounds(square(t)).
		FilterDate(date(2023, 1, 1), date(2024, 1, 1)).
		Map(bandmath.CalculateNDVI())
}

func TestExportTwelveMonths(t *testing.T) {
	s := memory.New()
	unit := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	s.Add(imagery.Sentinel2L2A,
		memory.Uniform("jan", date(2023, 1, 5), unit, 4, map[string]float64{bandmath.BandNIR: 0.6, bandmath.BandRed: 0.2}),
		memory.Uniform("feb", date(2023, 2, 10), unit, 4, map[string]float64{bandmath.BandNIR: 0.5, bandmath.BandRed: 0.5}),
	)
	dir := t.TempDir()

	paths, err := NewExporter(s, Config{Dir: dir, Width: 8, Height: 8, Retry: fast}).Export(context.Background(), baseQuery(t))
	require.NoError(t, err)
	require.Len(t, paths, 12)
	assert.Equal(t, filepath.Join(dir, "ndvi_202301.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "ndvi_202312.png"), paths[11])

	jan := decode(t, paths[0])
	_, _, _, a := jan.At(4, 4).RGBA()
	assert.NotZero(t, a)

	may := decode(t, paths[4])
	assert.Equal(t, 8, may.Bounds().Dx())
	_, _, _, a = may.At(4, 4).RGBA()
	assert.Zero(t, a, "a month without images is transparent")
}

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

type stubSession struct {
	payloads [][]byte
	errs     []error
	calls    int
}

func (s *stubSession) Search(context.Context, imagery.Query) ([]imagery.Image, error) {
	return nil, nil
}

func (s *stubSession) ReduceRegion(context.Context, imagery.ReduceRequest) (reducer.Result, error) {
	return nil, nil
}

func (s *stubSession) Thumbnail(context.Context, imagery.ThumbnailRequest) ([]byte, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.payloads) {
		return s.payloads[i], nil
	}
	return nil, errors.New("unexpected call")
}

func TestExportInvalidPayload(t *testing.T) {
	s := &stubSession{payloads: [][]byte{[]byte("<html>quota exceeded</html>")}}
	dir := t.TempDir()

	_, err := NewExporter(s, Config{Dir: dir, Months: 1, Retry: fast}).Export(context.Background(), baseQuery(t))
	var fe *ThumbnailFetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "202301", fe.Month)

	_, statErr := os.Stat(filepath.Join(dir, "ndvi_202301.png"))
	assert.True(t, os.IsNotExist(statErr), "nothing is written for an invalid payload")
}

func TestExportRetriesTransient(t *testing.T) {
	s := &stubSession{
		errs:     []error{&imagery.RemoteComputeError{Op: "thumbnail", Transient: true, Err: errors.New("503")}},
		payloads: [][]byte{nil, blankPNG(t)},
	}

	paths, err := NewExporter(s, Config{Dir: t.TempDir(), Prefix: "batista", Months: 1, Retry: fast}).
		Export(context.Background(), baseQuery(t))
	require.NoError(t, err)
	assert.Equal(t, 2, s.calls)
	assert.Equal(t, "batista_202301.png", filepath.Base(paths[0]))
}

func TestExportPermanentFailure(t *testing.T) {
	s := &stubSession{errs: []error{&imagery.RemoteComputeError{Op: "thumbnail", Err: errors.New("400")}}}
	_, err := NewExporter(s, Config{Dir: t.TempDir(), Months: 3, Retry: fast}).Export(context.Background(), baseQuery(t))

	var fe *ThumbnailFetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 1, s.calls)
}
