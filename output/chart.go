package output

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/timeseries"
)

const (
	chartWidth   = 1400
	chartHeight  = 700
	marginLeft   = 80.0
	marginRight  = 40.0
	marginTop    = 60.0
	marginBottom = 120.0
	maxXLabels   = 24
)

type series struct {
	label  string
	values []float64
	color  color.RGBA
	dashed bool
	points bool
}

type chart struct {
	dc     *gg.Context
	times  []time.Time
	first  time.Time
	span   float64
	plotW  float64
	plotH  float64
	yMin   float64
	yRange float64
}

func (c *chart) x(i int) float64 {
	if c.span == 0 {
		return marginLeft + c.plotW/2
	}
	return marginLeft + c.times[i].Sub(c.first).Seconds()/c.span*c.plotW
}

func (c *chart) y(v float64) float64 {
	return marginTop + (1-(v-c.yMin)/c.yRange)*c.plotH
}

// CreateTimeSeriesChart draws ndvi_mean over time with its value above every point. Max, min
// and median are drawn as dashed lines when the table has them, gaps interpolated.
func CreateTimeSeriesChart(rows []timeseries.Row, outputPath string) error {
	if len(rows) == 0 {
		return fmt.Errorf("no rows to chart")
	}
	times := make([]time.Time, len(rows))
	for i, r := range rows {
		t, err := time.Parse(imagery.DateLayout, r.Date)
		if err != nil {
			return fmt.Errorf("invalid date in row %d: %w", i, err)
		}
		times[i] = t
	}

	c := &chart{
		dc:     gg.NewContext(chartWidth, chartHeight),
		times:  times,
		first:  times[0],
		span:   times[len(times)-1].Sub(times[0]).Seconds(),
		plotW:  chartWidth - marginLeft - marginRight,
		plotH:  chartHeight - marginTop - marginBottom,
		yMin:   -1,
		yRange: 2,
	}
	dc := c.dc
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	c.drawAxes(rows)

	all := []series{
		{label: "max", values: Interpolate(Column(rows, reducer.Max)), color: color.RGBA{R: 46, G: 125, B: 50, A: 255}, dashed: true},
		{label: "median", values: Interpolate(Column(rows, reducer.Median)), color: color.RGBA{R: 249, G: 168, B: 37, A: 255}, dashed: true},
		{label: "min", values: Interpolate(Column(rows, reducer.Min)), color: color.RGBA{R: 198, G: 40, B: 40, A: 255}, dashed: true},
		{label: "mean", values: Column(rows, reducer.Mean), color: color.RGBA{R: 21, G: 101, B: 192, A: 255}, points: true},
	}
	var drawn []series
	for _, s := range all {
		if c.drawSeries(s) {
			drawn = append(drawn, s)
		}
	}
	c.drawLegend(drawn)

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("NDVI over time", chartWidth/2, marginTop/2, 0.5, 0.5)

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create chart folder: %w", err)
	}
	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	slog.Info("chart saved", "path", outputPath, "rows", len(rows))
	return nil
}

func (c *chart) drawAxes(rows []timeseries.Row) {
	dc := c.dc
	dc.SetLineWidth(1)
	for v := -1.0; v <= 1.0; v += 0.5 {
		y := c.y(v)
		dc.SetRGB(0.85, 0.85, 0.85)
		dc.SetDash(4, 4)
		dc.DrawLine(marginLeft, y, marginLeft+c.plotW, y)
		dc.Stroke()
		dc.SetDash()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), marginLeft-10, y, 1, 0.5)
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+c.plotH)
	dc.DrawLine(marginLeft, marginTop+c.plotH, marginLeft+c.plotW, marginTop+c.plotH)
	dc.Stroke()

	every := (len(rows) + maxXLabels - 1) / maxXLabels
	base := marginTop + c.plotH + 10
	for i := 0; i < len(rows); i += every {
		x := c.x(i)
		dc.DrawLine(x, marginTop+c.plotH, x, marginTop+c.plotH+5)
		dc.Stroke()
		dc.Push()
		dc.RotateAbout(gg.Radians(-45), x, base)
		dc.DrawStringAnchored(c.times[i].Format("02/01/2006"), x, base, 1, 0.5)
		dc.Pop()
	}
	dc.DrawStringAnchored("date", marginLeft+c.plotW/2, chartHeight-15, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 20, marginTop+c.plotH/2)
	dc.DrawStringAnchored("NDVI", 20, marginTop+c.plotH/2, 0.5, 0.5)
	dc.Pop()
}

// drawSeries reports whether anything was drawn.
func (c *chart) drawSeries(s series) bool {
	dc := c.dc
	dc.SetColor(s.color)
	dc.SetLineWidth(2)
	if s.dashed {
		dc.SetDash(8, 4)
	}
	drew := false
	open := false
	for i, v := range s.values {
		if math.IsNaN(v) {
			open = false
			continue
		}
		drew = true
		if open {
			dc.LineTo(c.x(i), c.y(v))
		} else {
			dc.MoveTo(c.x(i), c.y(v))
			open = true
		}
	}
	dc.Stroke()
	dc.SetDash()

	if !s.points {
		return drew
	}
	for i, v := range s.values {
		if math.IsNaN(v) {
			continue
		}
		x, y := c.x(i), c.y(v)
		dc.SetColor(s.color)
		dc.DrawCircle(x, y, 4)
		dc.Fill()
		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", v), x, y-10, 0.5, 0)
	}
	return drew
}

func (c *chart) drawLegend(drawn []series) {
	dc := c.dc
	x := marginLeft + c.plotW - 110
	y := marginTop + 15
	for _, s := range drawn {
		dc.SetColor(s.color)
		dc.DrawRectangle(x, y-5, 20, 10)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(s.label, x+28, y, 0, 0.5)
		y += 18
	}
}
