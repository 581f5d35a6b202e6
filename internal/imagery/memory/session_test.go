package memory

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
)

var unit = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}

func day(s string) time.Time {
	d, err := time.Parse(imagery.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustRegion(t *testing.T, ring orb.Ring) region.Region {
	t.Helper()
	r, err := region.FromGeometry(orb.Polygon{ring})
	require.NoError(t, err)
	return r
}

func square(t *testing.T) region.Region {
	return mustRegion(t, orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}})
}

func scene(id, date string, nir, red, scl float64) func() (string, string, map[string]float64) {
	return func() (string, string, map[string]float64) {
		return id, date, map[string]float64{bandmath.BandNIR: nir, bandmath.BandRed: red, bandmath.BandSCL: scl}
	}
}

func newSession(scenes ...func() (string, string, map[string]float64)) *Session {
	s := New()
	for _, sc := range scenes {
		id, date, bands := sc()
		s.Add(imagery.Sentinel2L2A, Uniform(id, day(date), unit, 4, bands))
	}
	return s
}

func reduceRequest(t *testing.T, id string, chain bandmath.Chain, c reducer.Combined) imagery.ReduceRequest {
	return imagery.ReduceRequest{
		Image:      imagery.Image{ID: id},
		Collection: imagery.Sentinel2L2A,
		Transforms: chain,
		Band:       bandmath.BandNDVI,
		Region:     square(t),
		Reducer:    c,
		Scale:      imagery.DefaultScale,
	}
}

func TestSearchFilters(t *testing.T) {
	s := newSession(
		scene("feb", "2023-02-10", 0.5, 0.5, 4),
		scene("jan", "2023-01-05", 0.6, 0.2, 4),
		scene("next-year", "2024-01-05", 0.6, 0.2, 4),
	)
	far := Uniform("far", day("2023-03-01"), orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{11, 11}}, 4, nil)
	cloudy := Uniform("cloudy", day("2023-03-02"), unit, 4, nil)
	cloudy.CloudCover = 80
	s.Add(imagery.Sentinel2L2A, far, cloudy)

	q := imagery.NewQuery(imagery.Sentinel2L2A).
		FilterBounds(square(t)).
		FilterDate(day("2023-01-01"), day("2024-01-01")).
		FilterCloudCover(20)

	c, err := q.Collect(context.Background(), s)
	require.NoError(t, err)
	var ids []string
	for _, img := range c.Images() {
		ids = append(ids, img.ID)
	}
	assert.Equal(t, []string{"jan", "feb"}, ids)
}

func TestSearchUnknownCollection(t *testing.T) {
	q := imagery.NewQuery("landsat").FilterBounds(square(t)).FilterDate(day("2023-01-01"), day("2024-01-01"))
	_, err := q.Collect(context.Background(), New())
	var qe *imagery.RemoteQueryError
	require.True(t, errors.As(err, &qe))
	assert.ErrorIs(t, err, imagery.ErrUnknownCollection)
}

func TestReduceRegionNDVI(t *testing.T) {
	s := newSession(scene("a", "2023-01-05", 0.6, 0.2, 4), scene("b", "2023-02-10", 0.5, 0.5, 4))
	chain := bandmath.Chain{bandmath.CalculateNDVI()}

	res, err := s.ReduceRegion(context.Background(), reduceRequest(t, "a", chain, reducer.Combine(reducer.Mean, reducer.Max)))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res[reducer.Mean], 1e-12)
	assert.InDelta(t, 0.5, res[reducer.Max], 1e-12)

	res, err = s.ReduceRegion(context.Background(), reduceRequest(t, "b", chain, reducer.Combine(reducer.Mean)))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res[reducer.Mean], 1e-12)
}

func TestReduceRegionZeroSumIsMissing(t *testing.T) {
	s := newSession(scene("dark", "2023-01-05", 0, 0, 4))
	res, err := s.ReduceRegion(context.Background(),
		reduceRequest(t, "dark", bandmath.Chain{bandmath.CalculateNDVI()}, reducer.Combine(reducer.All...)))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReduceRegionVegetationMask(t *testing.T) {
	s := newSession(scene("bare", "2023-01-05", 0.6, 0.2, 5))
	chain := bandmath.Chain{bandmath.CalculateNDVI(), bandmath.VegetationMask()}
	res, err := s.ReduceRegion(context.Background(), reduceRequest(t, "bare", chain, reducer.Combine(reducer.Mean)))
	require.NoError(t, err)
	assert.Nil(t, res, "non-vegetation pixels are masked")

	res, err = s.ReduceRegion(context.Background(),
		reduceRequest(t, "bare", bandmath.Chain{bandmath.CalculateNDVI()}, reducer.Combine(reducer.Mean)))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res[reducer.Mean], 1e-12)
}

func TestReduceRegionCombinedEqualsSingle(t *testing.T) {
	img := Uniform("mixed", day("2023-01-05"), unit, 4, map[string]float64{bandmath.BandRed: 0.1})
	nir := make([]float64, img.Len())
	for i := range nir {
		nir[i] = 0.05 * float64(i+1)
	}
	require.NoError(t, img.SetBand(bandmath.BandNIR, nir))
	s := New()
	s.Add(imagery.Sentinel2L2A, img)

	chain := bandmath.Chain{bandmath.CalculateNDVI()}
	combined, err := s.ReduceRegion(context.Background(), reduceRequest(t, "mixed", chain, reducer.Combine(reducer.All...)))
	require.NoError(t, err)
	for _, st := range reducer.All {
		single, err := s.ReduceRegion(context.Background(), reduceRequest(t, "mixed", chain, reducer.Combine(st)))
		require.NoError(t, err)
		assert.Equal(t, single[st], combined[st], "statistic %s", st)
	}
}

func TestReduceRegionFaults(t *testing.T) {
	s := newSession(scene("a", "2023-01-05", 0.6, 0.2, 4))
	s.Fail("a", &imagery.RemoteComputeError{Op: "reduce", Image: "a", Transient: true, Err: errors.New("429")})

	req := reduceRequest(t, "a", bandmath.Chain{bandmath.CalculateNDVI()}, reducer.Combine(reducer.Mean))
	_, err := s.ReduceRegion(context.Background(), req)
	assert.True(t, imagery.IsTransient(err))

	_, err = s.ReduceRegion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Calls("a"))

	req.Image.ID = "missing"
	_, err = s.ReduceRegion(context.Background(), req)
	assert.ErrorIs(t, err, imagery.ErrImageNotFound)
	assert.False(t, imagery.IsTransient(err))
}

func TestThumbnailIsClippedComposite(t *testing.T) {
	s := newSession(
		scene("a", "2023-01-05", 0.6, 0.2, 4),
		scene("b", "2023-01-15", 0.9, 0.1, 4),
		scene("c", "2023-01-25", 0.5, 0.5, 4),
	)
	triangle := mustRegion(t, orb.Ring{{0, 0}, {1, 0}, {0, 1}, {0, 0}})
	q := imagery.NewQuery(imagery.Sentinel2L2A).
		FilterBounds(triangle).
		FilterDate(day("2023-01-01"), day("2023-02-01")).
		Map(bandmath.CalculateNDVI())

	palette := bandmath.NDVIPalette()
	raw, err := s.Thumbnail(context.Background(), imagery.ThumbnailRequest{
		Query: q, Band: bandmath.BandNDVI, Palette: palette, Min: -1, Max: 1, Width: 16, Height: 16,
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	_, _, _, a := img.At(15, 0).RGBA()
	assert.Zero(t, a, "outside the region is transparent")

	r, g, b, a := img.At(0, 15).RGBA()
	want := palette.At(0.5, -1, 1)
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, []uint32{uint32(want.R) * 0x101, uint32(want.G) * 0x101, uint32(want.B) * 0x101}, []uint32{r, g, b})
}

func TestThumbnailEmptyCollectionIsTransparent(t *testing.T) {
	q := imagery.NewQuery(imagery.Sentinel2L2A).
		FilterBounds(square(t)).
		FilterDate(day("2023-05-01"), day("2023-06-01")).
		Map(bandmath.CalculateNDVI())

	raw, err := newSession().Thumbnail(context.Background(), imagery.ThumbnailRequest{
		Query: q, Band: bandmath.BandNDVI, Palette: bandmath.NDVIPalette(), Min: -1, Max: 1,
	})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 512, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())
	_, _, _, a := img.At(256, 256).RGBA()
	assert.Zero(t, a)
}

func TestSyntheticIsDeterministic(t *testing.T) {
	opts := SyntheticOptions{Start: day("2023-01-01"), End: day("2023-02-01"), Revisit: 10, Seed: 7}
	a := Synthetic(square(t), opts)
	b := Synthetic(square(t), opts)
	require.Len(t, a, 4)
	assert.Equal(t, a[2].Bands, b[2].Bands)
	assert.Equal(t, "S2_SYN_20230111_7", a[1].ID)

	opts.Seed = 8
	c := Synthetic(square(t), opts)
	assert.NotEqual(t, a[1].ID, c[1].ID, "image IDs depend on the seed")
	assert.NotEqual(t, a[1].Bands, c[1].Bands)
}
