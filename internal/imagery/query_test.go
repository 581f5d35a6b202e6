package imagery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
)

type stubSession struct {
	images  []Image
	err     error
	queries []Query
}

func (s *stubSession) Search(_ context.Context, q Query) ([]Image, error) {
	s.queries = append(s.queries, q)
	return s.images, s.err
}

func (s *stubSession) ReduceRegion(context.Context, ReduceRequest) (reducer.Result, error) {
	return nil, nil
}

func (s *stubSession) Thumbnail(context.Context, ThumbnailRequest) ([]byte, error) {
	return nil, nil
}

func testRegion(t *testing.T) region.Region {
	t.Helper()
	r, err := region.FromGeometry(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	require.NoError(t, err)
	return r
}

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQueryIsImmutable(t *testing.T) {
	base := NewQuery(Sentinel2L2A).FilterBounds(testRegion(t)).FilterDate(day("2023-01-01"), day("2024-01-01"))

	withNDVI := base.Map(bandmath.CalculateNDVI())
	masked := withNDVI.Map(bandmath.VegetationMask())
	cloudy := withNDVI.FilterCloudCover(20)

	assert.Empty(t, base.Transforms())
	assert.Equal(t, []string{"ndvi"}, withNDVI.Transforms().Names())
	assert.Equal(t, []string{"ndvi", "vegetation-mask"}, masked.Transforms().Names())
	assert.Equal(t, []string{"ndvi"}, cloudy.Transforms().Names())

	_, ok := withNDVI.CloudCover()
	assert.False(t, ok)
	lt, ok := cloudy.CloudCover()
	assert.True(t, ok)
	assert.Equal(t, 20.0, lt)
}

func TestValidate(t *testing.T) {
	r := testRegion(t)
	tests := []struct {
		name string
		q    Query
		want error
	}{
		{"end before start", NewQuery(Sentinel2L2A).FilterBounds(r).FilterDate(day("2023-02-01"), day("2023-01-01")), ErrInvalidDateRange},
		{"empty range", NewQuery(Sentinel2L2A).FilterBounds(r).FilterDate(day("2023-01-01"), day("2023-01-01")), ErrInvalidDateRange},
		{"no dates", NewQuery(Sentinel2L2A).FilterBounds(r), ErrInvalidDateRange},
		{"cloud above 100", NewQuery(Sentinel2L2A).FilterBounds(r).FilterDate(day("2023-01-01"), day("2023-02-01")).FilterCloudCover(101), ErrInvalidCloudCover},
		{"negative cloud", NewQuery(Sentinel2L2A).FilterBounds(r).FilterDate(day("2023-01-01"), day("2023-02-01")).FilterCloudCover(-1), ErrInvalidCloudCover},
		{"no region", NewQuery(Sentinel2L2A).FilterDate(day("2023-01-01"), day("2023-02-01")), ErrMissingRegion},
		{"no collection", NewQuery("").FilterBounds(r).FilterDate(day("2023-01-01"), day("2023-02-01")), ErrUnknownCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			var qe *RemoteQueryError
			require.True(t, errors.As(err, &qe))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCollectDoesNotCallSessionOnInvalidQuery(t *testing.T) {
	s := &stubSession{}
	_, err := NewQuery(Sentinel2L2A).FilterBounds(testRegion(t)).Collect(context.Background(), s)
	require.Error(t, err)
	assert.Empty(t, s.queries)
}

func TestCollectOrdersAndBoundsImages(t *testing.T) {
	s := &stubSession{images: []Image{
		{ID: "c", Acquired: day("2023-02-10")},
		{ID: "a", Acquired: day("2023-01-05")},
		{ID: "end", Acquired: day("2023-03-01")},
		{ID: "b", Acquired: day("2023-01-05")},
		{ID: "before", Acquired: day("2022-12-31")},
	}}
	q := NewQuery(Sentinel2L2A).FilterBounds(testRegion(t)).FilterDate(day("2023-01-01"), day("2023-03-01"))

	c, err := q.Collect(context.Background(), s)
	require.NoError(t, err)

	var ids []string
	for _, img := range c.Images() {
		ids = append(ids, img.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, "2023-01-05", c.Images()[0].Date())
	require.Len(t, s.queries, 1)
}

func TestCollectEmpty(t *testing.T) {
	q := NewQuery(Sentinel2L2A).FilterBounds(testRegion(t)).FilterDate(day("2023-01-01"), day("2023-03-01"))
	c, err := q.Collect(context.Background(), &stubSession{})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestIsTransient(t *testing.T) {
	transient := &RemoteComputeError{Op: "reduce", Image: "x", Transient: true, Err: errors.New("429")}
	assert.True(t, IsTransient(transient))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", transient)))
	assert.False(t, IsTransient(&RemoteComputeError{Op: "reduce", Err: errors.New("400")}))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.Contains(t, transient.Error(), "transient")
}
