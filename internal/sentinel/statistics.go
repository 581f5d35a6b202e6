package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
)

// number decodes statistics values that the service may send as "NaN", "Infinity" or null.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if string(b) == "null" {
		*n = number(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid statistic value %q: %w", b, err)
	}
	*n = number(v)
	return nil
}

type bandStats struct {
	Min         number            `json:"min"`
	Max         number            `json:"max"`
	Mean        number            `json:"mean"`
	StDev       number            `json:"stDev"`
	SampleCount int               `json:"sampleCount"`
	NoDataCount int               `json:"noDataCount"`
	Percentiles map[string]number `json:"percentiles"`
}

type statisticsResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Interval struct {
			From time.Time `json:"from"`
			To   time.Time `json:"to"`
		} `json:"interval"`
		Outputs map[string]struct {
			Bands map[string]struct {
				Stats bandStats `json:"stats"`
			} `json:"bands"`
		} `json:"outputs"`
		Error *struct {
			Type string `json:"type"`
		} `json:"error"`
	} `json:"data"`
}

// acquisitionWindow is how far around the acquisition time tiles are sampled. Tiles of one
// datatake fall within it; other passes of the same day do not.
const acquisitionWindow = 30 * time.Minute

// ReduceRegion asks the statistical API for the interval around the image acquisition,
// restricted to tiles under the query's cloud threshold. All statistics of the request come
// from the same sample.
func (c *Client) ReduceRegion(ctx context.Context, req imagery.ReduceRequest) (reducer.Result, error) {
	scale := req.Scale
	if scale <= 0 {
		scale = imagery.DefaultScale
	}
	bound := req.Region.Bound()
	acquired := req.Image.Acquired.UTC()
	from, to := acquired.Add(-acquisitionWindow), acquired.Add(acquisitionWindow)

	collection := req.Collection
	if collection == "" {
		collection = imagery.Sentinel2L2A
	}

	data := map[string]any{"type": collection}
	if req.MaxCloudCover != nil {
		data["dataFilter"] = map[string]any{"maxCloudCoverage": *req.MaxCloudCover}
	}

	calculation := map[string]any{}
	if ks := req.Reducer.Percentiles(); len(ks) > 0 {
		calculation["percentiles"] = map[string]any{"k": ks}
	}

	payload := map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{
				"geometry": req.Region.Geometry(),
			},
			"data": []map[string]any{data},
		},
		"aggregation": map[string]any{
			"timeRange": map[string]string{
				"from": from.Format(time.RFC3339),
				"to":   to.Format(time.RFC3339),
			},
			"aggregationInterval":  map[string]string{"of": "P1D"},
			"lastIntervalBehavior": "SHORTEN",
			"width":                calculatePixels(bound.Max.X()-bound.Min.X(), scale),
			"height":               calculatePixels(bound.Max.Y()-bound.Min.Y(), scale),
			"evalscript":           statisticsScript(req.Transforms, req.Band),
		},
		"calculations": map[string]any{
			outputID(req.Band): map[string]any{
				"statistics": map[string]any{"default": calculation},
			},
		},
	}

	raw, err := c.post(ctx, "reduce", req.Image.ID, statisticsPath, payload, "application/json")
	if err != nil {
		return nil, err
	}
	var resp statisticsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &imagery.RemoteComputeError{Op: "reduce", Image: req.Image.ID, Err: fmt.Errorf("decode statistics: %w", err)}
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	interval := resp.Data[0]
	if interval.Error != nil {
		return nil, &imagery.RemoteComputeError{Op: "reduce", Image: req.Image.ID, Err: fmt.Errorf("interval error %s", interval.Error.Type)}
	}
	out, ok := interval.Outputs[outputID(req.Band)]
	if !ok {
		return nil, &imagery.RemoteComputeError{Op: "reduce", Image: req.Image.ID, Err: fmt.Errorf("response has no %s output", outputID(req.Band))}
	}
	for _, b := range out.Bands {
		return toResult(b.Stats, req.Reducer)
	}
	return nil, nil
}

func toResult(s bandStats, c reducer.Combined) (reducer.Result, error) {
	if s.SampleCount == 0 || s.SampleCount == s.NoDataCount {
		return nil, nil
	}
	percentiles := make(map[float64]float64, len(s.Percentiles))
	for k, v := range s.Percentiles {
		rank, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid percentile key %q", k)
		}
		percentiles[rank] = float64(v)
	}

	res := make(reducer.Result, len(c.Statistics()))
	for _, st := range c.Statistics() {
		var v float64
		switch st {
		case reducer.Mean:
			v = float64(s.Mean)
		case reducer.Min:
			v = float64(s.Min)
		case reducer.Max:
			v = float64(s.Max)
		case reducer.StdDev:
			v = float64(s.StDev)
		default:
			k, _ := st.Percentile()
			p, ok := percentiles[k]
			if !ok {
				return nil, fmt.Errorf("response has no percentile %g", k)
			}
			v = p
		}
		if math.IsNaN(v) {
			return nil, nil
		}
		res[st] = v
	}
	return res, nil
}
