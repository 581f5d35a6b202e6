// Package thumbnail exports one rendered composite per calendar month.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/bandmath"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
)

const (
	DefaultPrefix = "ndvi"
	DefaultMonths = 12
	DefaultSize   = 512
)

// ThumbnailFetchError reports a month whose thumbnail could not be rendered, downloaded or
// saved.
type ThumbnailFetchError struct {
	Month string
	Path  string
	Err   error
}

func (e *ThumbnailFetchError) Error() string {
	return fmt.Sprintf("thumbnail %s: %v", e.Month, e.Err)
}

func (e *ThumbnailFetchError) Unwrap() error {
	return e.Err
}

// MonthRange is the half-open interval [Start, End) of one calendar month.
type MonthRange struct {
	Start time.Time
	End   time.Time
}

// Label is the YYYYMM form used in file names.
func (m MonthRange) Label() string {
	return m.Start.Format("200601")
}

// MonthRanges returns n consecutive calendar months, the first one containing start.
func MonthRanges(start time.Time, n int) []MonthRange {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	out := make([]MonthRange, n)
	for i := range out {
		out[i] = MonthRange{Start: first.AddDate(0, i, 0), End: first.AddDate(0, i+1, 0)}
	}
	return out
}

type Config struct {
	Dir     string
	Prefix  string
	Months  int
	Band    string
	Palette bandmath.Palette
	Min     float64
	Max     float64
	Width   int
	Height  int
	Retry   imagery.RetryPolicy
	Logger  *slog.Logger
}

type Exporter struct {
	session imagery.Session
	cfg     Config
	log     *slog.Logger
}

func NewExporter(session imagery.Session, cfg Config) *Exporter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Months <= 0 {
		cfg.Months = DefaultMonths
	}
	if cfg.Band == "" {
		cfg.Band = bandmath.BandNDVI
	}
	if cfg.Palette == nil {
		cfg.Palette = bandmath.NDVIPalette()
	}
	if cfg.Min == 0 && cfg.Max == 0 {
		cfg.Min, cfg.Max = -1, 1
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultSize
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultSize
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{session: session, cfg: cfg, log: log.With("component", "thumbnail")}
}

// Path is the file a month is written to.
func (e *Exporter) Path(m MonthRange) string {
	return filepath.Join(e.cfg.Dir, fmt.Sprintf("%s_%s.png", e.cfg.Prefix, m.Label()))
}

// Export renders the months starting at base.Start(). Every month reuses the region, the cloud
// filter and the transforms of base with the month as date range. Paths are returned in month
// order. A month without images produces a fully transparent thumbnail.
func (e *Exporter) Export(ctx context.Context, base imagery.Query) ([]string, error) {
	if err := os.MkdirAll(e.cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	var paths []string
	for _, m := range MonthRanges(base.Start(), e.cfg.Months) {
		path, err := e.exportMonth(ctx, base.FilterDate(m.Start, m.End), m)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	e.log.Info("thumbnails exported", "count", len(paths), "dir", e.cfg.Dir)
	return paths, nil
}

func (e *Exporter) exportMonth(ctx context.Context, q imagery.Query, m MonthRange) (string, error) {
	path := e.Path(m)
	log := e.log.With("month", m.Label())
	fail := func(err error) (string, error) {
		return "", &ThumbnailFetchError{Month: m.Label(), Path: path, Err: err}
	}

	req := imagery.ThumbnailRequest{
		Query:   q,
		Band:    e.cfg.Band,
		Palette: e.cfg.Palette,
		Min:     e.cfg.Min,
		Max:     e.cfg.Max,
		Width:   e.cfg.Width,
		Height:  e.cfg.Height,
	}
	var payload []byte
	err := e.cfg.Retry.Do(ctx, log, func() error {
		var err error
		payload, err = e.session.Thumbnail(ctx, req)
		return err
	})
	if err != nil {
		return fail(err)
	}
	if err := validatePNG(payload); err != nil {
		return fail(err)
	}
	if err := writeAtomic(path, payload); err != nil {
		return fail(err)
	}
	log.Debug("thumbnail saved", "path", path, "bytes", len(payload))
	return path, nil
}

func validatePNG(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	if _, err := png.DecodeConfig(bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("payload is not a PNG image: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}
