package sentinel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
)

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, ", ")
}

func outputID(band string) string {
	return strings.ToLower(band)
}

// statisticsScript evaluates the chain on every sample and exposes band as a single output,
// with dataMask marking the pixels taken into the statistics.
func statisticsScript(chain bandmath.Chain, band string) string {
	inputs := append(chain.Inputs(), "dataMask")
	return fmt.Sprintf(`//VERSION=3
function setup() {
  return {
    input: [{bands: [%s]}],
    output: [
      {id: %q, bands: 1, sampleType: "FLOAT32"},
      {id: "dataMask", bands: 1}
    ]
  };
}

%s
function evaluatePixel(sample) {
  var r = mapSample(sample);
  var v = r.band.%s;
  var ok = r.valid && !isNaN(v);
  return {%s: [ok ? v : NaN], dataMask: [ok ? 1 : 0]};
}
`, quoteAll(inputs), outputID(band), chain.SampleFunction(), band, outputID(band))
}

// thumbnailScript composites every orbit of the time range with a per-pixel median and colors
// the result with palette spread over [min, max]. Pixels without a valid observation are
// transparent.
func thumbnailScript(chain bandmath.Chain, band string, palette bandmath.Palette, min, max float64) string {
	inputs := append(chain.Inputs(), "dataMask")

	stops := palette.Stops(min, max)
	var ramp strings.Builder
	for i, c := range palette {
		if i > 0 {
			ramp.WriteString(", ")
		}
		fmt.Fprintf(&ramp, "[%s, [%d/255, %d/255, %d/255]]",
			strconv.FormatFloat(stops[i], 'f', -1, 64), c.R, c.G, c.B)
	}

	return fmt.Sprintf(`//VERSION=3
function setup() {
  return {
    input: [{bands: [%s]}],
    output: {bands: 4},
    mosaicking: "ORBIT"
  };
}

var ramp = [%s];
var stops = ramp.map(function (s) { return s[0]; });
var colors = ramp.map(function (s) { return s[1]; });

%s
function median(values) {
  values.sort(function (a, b) { return a - b; });
  var mid = Math.floor(values.length / 2);
  return values.length %% 2 ? values[mid] : (values[mid - 1] + values[mid]) / 2;
}

function evaluatePixel(samples) {
  var values = [];
  for (var i = 0; i < samples.length; i++) {
    var r = mapSample(samples[i]);
    var v = r.band.%s;
    if (r.valid && !isNaN(v)) {
      values.push(v);
    }
  }
  if (values.length == 0) {
    return [0, 0, 0, 0];
  }
  var rgb = colorBlend(median(values), stops, colors);
  return [rgb[0], rgb[1], rgb[2], 1];
}
`, quoteAll(inputs), ramp.String(), chain.SampleFunction(), band)
}
