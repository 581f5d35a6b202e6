package sentinel

import (
	"context"
	"time"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
)

// Thumbnail renders the month composite through the process API as a PNG clipped to the
// query region.
func (c *Client) Thumbnail(ctx context.Context, req imagery.ThumbnailRequest) ([]byte, error) {
	q := req.Query
	if err := q.Validate(); err != nil {
		return nil, err
	}
	w, h := req.Dimensions()

	dataFilter := map[string]any{
		"timeRange": map[string]string{
			"from": q.Start().UTC().Format(time.RFC3339),
			"to":   q.End().UTC().Format(time.RFC3339),
		},
	}
	if lt, ok := q.CloudCover(); ok {
		dataFilter["maxCloudCoverage"] = lt
	}

	payload := map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{
				"geometry": q.Region().Geometry(),
			},
			"data": []map[string]any{
				{
					"type":       q.Collection(),
					"dataFilter": dataFilter,
				},
			},
		},
		"output": map[string]any{
			"width":  w,
			"height": h,
			"responses": []map[string]any{
				{
					"identifier": "default",
					"format":     map[string]string{"type": "image/png"},
				},
			},
		},
		"evalscript": thumbnailScript(q.Transforms(), req.Band, req.Palette, req.Min, req.Max),
	}

	return c.post(ctx, "thumbnail", q.Start().Format("200601"), processPath, payload, "image/png")
}
