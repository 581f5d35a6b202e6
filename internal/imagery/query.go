// Package imagery describes image collections of the remote processing service and the
// session contract used to resolve them.
package imagery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
)

const (
	Sentinel2L2A = "sentinel-2-l2a"

	// DefaultScale is the sample scale in meters used for reductions.
	DefaultScale = 10.0

	DateLayout = "2006-01-02"
)

// Image references one acquisition of a collection.
type Image struct {
	ID         string    `json:"id"`
	Acquired   time.Time `json:"acquired"`
	CloudCover float64   `json:"cloud_cover"`
}

// Date is the calendar day of the acquisition in UTC.
func (i Image) Date() string {
	return i.Acquired.UTC().Format(DateLayout)
}

// Query is an immutable description of a filtered, mapped collection. Nothing is sent to the
// remote service until Collect is called.
type Query struct {
	collection string
	region     region.Region
	cloudLT    float64
	hasCloud   bool
	start      time.Time
	end        time.Time
	transforms bandmath.Chain
}

func NewQuery(collection string) Query {
	return Query{collection: collection}
}

// FilterBounds keeps images intersecting r.
func (q Query) FilterBounds(r region.Region) Query {
	q.region = r
	return q
}

// FilterCloudCover keeps images whose cloud percentage is strictly below lt.
func (q Query) FilterCloudCover(lt float64) Query {
	q.cloudLT = lt
	q.hasCloud = true
	return q
}

// FilterDate keeps images acquired in [start, end).
func (q Query) FilterDate(start, end time.Time) Query {
	q.start = start
	q.end = end
	return q
}

// Map appends transforms applied to every image of the collection. The receiver's chain is
// never shared with the result.
func (q Query) Map(ts ...bandmath.Transform) Query {
	chain := make(bandmath.Chain, 0, len(q.transforms)+len(ts))
	chain = append(chain, q.transforms...)
	q.transforms = append(chain, ts...)
	return q
}

func (q Query) Collection() string { return q.collection }

func (q Query) Region() region.Region { return q.region }

func (q Query) Start() time.Time { return q.start }

func (q Query) End() time.Time { return q.end }

// CloudCover returns the threshold and whether one was set.
func (q Query) CloudCover() (float64, bool) { return q.cloudLT, q.hasCloud }

func (q Query) Transforms() bandmath.Chain {
	return append(bandmath.Chain(nil), q.transforms...)
}

func (q Query) String() string {
	s := fmt.Sprintf("%s [%s, %s)", q.collection, q.start.Format(DateLayout), q.end.Format(DateLayout))
	if q.hasCloud {
		s += fmt.Sprintf(" cloud<%g", q.cloudLT)
	}
	return s
}

func (q Query) Validate() error {
	if q.collection == "" {
		return &RemoteQueryError{Err: ErrUnknownCollection}
	}
	if q.region.IsZero() {
		return &RemoteQueryError{Collection: q.collection, Err: ErrMissingRegion}
	}
	if q.start.IsZero() || q.end.IsZero() || !q.end.After(q.start) {
		return &RemoteQueryError{Collection: q.collection, Err: fmt.Errorf("%w: %s..%s", ErrInvalidDateRange,
			q.start.Format(DateLayout), q.end.Format(DateLayout))}
	}
	if q.hasCloud && (q.cloudLT < 0 || q.cloudLT > 100) {
		return &RemoteQueryError{Collection: q.collection, Err: fmt.Errorf("%w: %g", ErrInvalidCloudCover, q.cloudLT)}
	}
	return nil
}

// Collection is a resolved query: the images in acquisition order plus the query that
// produced them.
type Collection struct {
	query  Query
	images []Image
}

func (c Collection) Query() Query { return c.query }

func (c Collection) Len() int { return len(c.images) }

func (c Collection) Images() []Image {
	return append([]Image(nil), c.images...)
}

// Collect resolves q against the session. Zero matches yield an empty collection.
func (q Query) Collect(ctx context.Context, s Session) (Collection, error) {
	if err := q.Validate(); err != nil {
		return Collection{}, err
	}

	images, err := s.Search(ctx, q)
	if err != nil {
		return Collection{}, err
	}

	kept := make([]Image, 0, len(images))
	for _, img := range images {
		if img.Acquired.Before(q.start) || !img.Acquired.Before(q.end) {
			continue
		}
		kept = append(kept, img)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Acquired.Before(kept[j].Acquired)
	})
	return Collection{query: q, images: kept}, nil
}
