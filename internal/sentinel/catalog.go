package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
)

const (
	catalogPageSize = 100
	catalogMaxPages = 200
)

type searchRequest struct {
	Collections []string          `json:"collections"`
	Datetime    string            `json:"datetime"`
	Intersects  *geojson.Geometry `json:"intersects"`
	Limit       int               `json:"limit"`
	Filter      string            `json:"filter,omitempty"`
	FilterLang  string            `json:"filter-lang,omitempty"`
	Next        int               `json:"next,omitempty"`
}

type searchResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Datetime   time.Time `json:"datetime"`
			CloudCover float64   `json:"eo:cloud_cover"`
		} `json:"properties"`
	} `json:"features"`
	Context struct {
		Next     int `json:"next"`
		Returned int `json:"returned"`
	} `json:"context"`
}

// Search pages through the STAC catalog. The datetime interval is closed on the service side,
// exclusive end dates are enforced by imagery.Query.Collect.
func (c *Client) Search(ctx context.Context, q imagery.Query) ([]imagery.Image, error) {
	req := searchRequest{
		Collections: []string{q.Collection()},
		Datetime:    q.Start().UTC().Format(time.RFC3339) + "/" + q.End().UTC().Format(time.RFC3339),
		Intersects:  q.Region().Geometry(),
		Limit:       catalogPageSize,
	}
	if lt, ok := q.CloudCover(); ok {
		req.Filter = fmt.Sprintf("eo:cloud_cover < %g", lt)
		req.FilterLang = "cql2-text"
	}

	var images []imagery.Image
	for page := 0; page < catalogMaxPages; page++ {
		raw, err := c.post(ctx, "search", "", catalogPath, req, "application/geo+json")
		if err != nil {
			return nil, &imagery.RemoteQueryError{Collection: q.Collection(), Err: err}
		}
		var resp searchResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, &imagery.RemoteQueryError{Collection: q.Collection(), Err: fmt.Errorf("decode catalog page: %w", err)}
		}
		for _, f := range resp.Features {
			images = append(images, imagery.Image{
				ID:         f.ID,
				Acquired:   f.Properties.Datetime,
				CloudCover: f.Properties.CloudCover,
			})
		}
		if resp.Context.Next == 0 {
			c.logger.Debug("catalog search done", "query", q.String(), "images", len(images), "pages", page+1)
			return images, nil
		}
		req.Next = resp.Context.Next
	}
	return nil, &imagery.RemoteQueryError{Collection: q.Collection(), Err: fmt.Errorf("catalog returned more than %d pages", catalogMaxPages)}
}
