package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/cache"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/thumbnail"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/timeseries"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/output"
)

// Result describes what a run produced.
type Result struct {
	Region     region.Region
	Images     int
	Rows       []timeseries.Row
	TablePath  string
	Thumbnails []string
	Report     output.Report
	Elapsed    time.Duration
}

type Runner struct {
	session  imagery.Session
	cfg      Config
	log      *slog.Logger
	progress bool
}

// NewRunner binds a configuration to a session. Progress bars are drawn when progress is set.
func NewRunner(session imagery.Session, cfg Config, log *slog.Logger, progress bool) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		session:  session,
		cfg:      cfg,
		log:      log.With("component", "pipeline", "run", cfg.Name),
		progress: progress,
	}
}

func (r *Runner) Config() Config {
	return r.cfg
}

func (r *Runner) TablePath() string {
	return filepath.Join(r.cfg.OutputDir, r.cfg.TableName)
}

func (r *Runner) ThumbnailDir() string {
	return filepath.Join(r.cfg.OutputDir, "thumbnails")
}

func (r *Runner) ReportDir() string {
	return filepath.Join(r.cfg.OutputDir, "report")
}

// LoadRegion reads the configured region file.
func (r *Runner) LoadRegion() (region.Region, error) {
	reg, err := region.Load(r.cfg.RegionPath)
	if err != nil {
		return region.Region{}, err
	}
	c, _ := reg.Centroid()
	r.log.Info("region loaded", "path", r.cfg.RegionPath, "centroid", c)
	return reg, nil
}

// TimeSeries collects the images over reg, reduces each one and saves the table. The number of
// images collected is returned with the rows.
func (r *Runner) TimeSeries(ctx context.Context, reg region.Region) ([]timeseries.Row, int, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, 0, err
	}
	col, err := r.cfg.Query(reg).Collect(ctx, r.session)
	if err != nil {
		return nil, 0, err
	}
	r.log.Info("collection resolved", "images", col.Len())

	tc := timeseries.Config{
		Band:     r.cfg.Band,
		Reducer:  r.cfg.Reducer(),
		Scale:    r.cfg.Scale,
		Workers:  r.cfg.Workers,
		Retry:    r.cfg.Retry,
		Progress: r.progress,
		Logger:   r.log,
	}
	if r.cfg.Checkpoints {
		dir, err := filepath.Abs(filepath.Join(r.cfg.OutputDir, "checkpoints", r.cfg.Name))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve checkpoint directory: %w", err)
		}
		tc.Checkpoints = cache.NewFileCache[timeseries.Checkpoint](dir)
	}

	rows, err := timeseries.NewAssembler(r.session, tc).Extract(ctx, col)
	if err != nil {
		return nil, col.Len(), err
	}
	if err := timeseries.SaveCSV(r.TablePath(), rows); err != nil {
		return nil, col.Len(), err
	}
	r.log.Info("table saved", "path", r.TablePath(), "rows", len(rows))
	return rows, col.Len(), nil
}

// Thumbnails exports the monthly NDVI composites starting at the configured start month.
func (r *Runner) Thumbnails(ctx context.Context, reg region.Region) ([]string, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	return thumbnail.NewExporter(r.session, thumbnail.Config{
		Dir:    r.ThumbnailDir(),
		Prefix: r.cfg.ThumbnailPrefix,
		Months: r.cfg.Months,
		Band:   r.cfg.Band,
		Retry:  r.cfg.Retry,
		Logger: r.log,
	}).Export(ctx, r.cfg.ThumbnailQuery(reg))
}

// Run loads the region, then builds the table and the thumbnails concurrently. The first
// failure cancels the other step. Report artifacts are written last when enabled.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := r.LoadRegion()
	if err != nil {
		return nil, err
	}
	res := &Result{Region: reg, TablePath: r.TablePath()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, n, err := r.TimeSeries(ctx, reg)
		res.Rows, res.Images = rows, n
		return err
	})
	g.Go(func() error {
		paths, err := r.Thumbnails(ctx, reg)
		res.Thumbnails = paths
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.cfg.Report {
		rep, err := output.WriteReport(r.ReportDir(), r.cfg.Name, reg, res.Rows, res.Thumbnails)
		if err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
		res.Report = rep
	}
	res.Elapsed = time.Since(start)
	r.log.Info("run finished", "images", res.Images, "rows", len(res.Rows), "thumbnails", len(res.Thumbnails), "elapsed", res.Elapsed)
	return res, nil
}
