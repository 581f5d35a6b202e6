package timeseries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/cache"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
)

// ExtractionError reports an image whose statistics could not be computed. No partial table
// is returned alongside it.
type ExtractionError struct {
	Image string
	Date  string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract statistics of %s (%s): %v", e.Image, e.Date, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Checkpoint is the persisted reduction of one image.
type Checkpoint struct {
	Image  string         `json:"image"`
	Date   string         `json:"date"`
	Result reducer.Result `json:"result"`
}

type Config struct {
	Band    string
	Reducer reducer.Combined
	Scale   float64
	// Workers bounds the concurrent reductions. Values below 1 mean 1.
	Workers int
	Retry   imagery.RetryPolicy
	// Checkpoints, when set, stores every reduction before the table is assembled so that a
	// rerun skips images already reduced.
	Checkpoints cache.CacheService[Checkpoint]
	Progress    bool
	Logger      *slog.Logger
}

type Assembler struct {
	session imagery.Session
	cfg     Config
	log     *slog.Logger
}

func NewAssembler(session imagery.Session, cfg Config) *Assembler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Scale <= 0 {
		cfg.Scale = imagery.DefaultScale
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{session: session, cfg: cfg, log: log.With("component", "timeseries")}
}

// Extract reduces every image of c and returns the deduplicated, date-ordered table. Images
// are reduced concurrently but merged in collection order, so for a repeated date the image
// that comes last in the collection wins.
func (a *Assembler) Extract(ctx context.Context, c imagery.Collection) ([]Row, error) {
	images := c.Images()
	if len(images) == 0 {
		a.log.Info("collection is empty", "query", c.Query().String())
		return []Row{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var bar *progressbar.ProgressBar
	if a.cfg.Progress {
		bar = progressbar.Default(int64(len(images)), "Extracting statistics")
	} else {
		bar = progressbar.DefaultSilent(int64(len(images)))
	}

	rows := make([]Row, len(images))
	errs := make([]error, len(images))
	wp := workerpool.New(a.cfg.Workers)
	for i, img := range images {
		wp.Submit(func() {
			defer bar.Add(1)
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			res, err := a.reduce(ctx, c.Query(), img)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			rows[i] = NewRow(img.Date(), res)
		})
	}
	wp.StopWait()
	_ = bar.Finish()

	if err := firstError(images, errs); err != nil {
		return nil, err
	}

	table := Deduplicate(rows)
	a.log.Info("table assembled", "images", len(images), "rows", len(table))
	return table, nil
}

// firstError prefers the failure that caused the cancellation over the cancellations it
// triggered.
func firstError(images []imagery.Image, errs []error) error {
	var canceled error
	for i, err := range errs {
		if err == nil {
			continue
		}
		wrapped := &ExtractionError{Image: images[i].ID, Date: images[i].Date(), Err: err}
		if errors.Is(err, context.Canceled) {
			if canceled == nil {
				canceled = wrapped
			}
			continue
		}
		return wrapped
	}
	return canceled
}

func (a *Assembler) checkpointKey(q imagery.Query, img imagery.Image) string {
	return a.cfg.Checkpoints.GenerateKey(
		img.ID,
		q.Collection(),
		a.cfg.Band,
		a.cfg.Reducer.String(),
		strings.Join(q.Transforms().Names(), "+"),
		a.cfg.Scale,
		q.Region().Fingerprint(),
	)
}

func (a *Assembler) reduce(ctx context.Context, q imagery.Query, img imagery.Image) (reducer.Result, error) {
	log := a.log.With("image", img.ID, "date", img.Date())

	var key string
	if a.cfg.Checkpoints != nil {
		key = a.checkpointKey(q, img)
		if cp, ok := a.cfg.Checkpoints.Get(key); ok {
			log.Debug("checkpoint hit")
			return cp.Result, nil
		}
	}

	req := imagery.ReduceRequest{
		Image:      img,
		Collection: q.Collection(),
		Transforms: q.Transforms(),
		Band:       a.cfg.Band,
		Region:     q.Region(),
		Reducer:    a.cfg.Reducer,
		Scale:      a.cfg.Scale,
	}
	if lt, ok := q.CloudCover(); ok {
		req.MaxCloudCover = &lt
	}
	var res reducer.Result
	err := a.cfg.Retry.Do(ctx, log, func() error {
		var err error
		res, err = a.session.ReduceRegion(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		log.Debug("no valid pixels in region")
	}

	if a.cfg.Checkpoints != nil {
		if err := a.cfg.Checkpoints.Set(key, Checkpoint{Image: img.ID, Date: img.Date(), Result: res}); err != nil {
			log.Warn("failed to store checkpoint", "error", err)
		}
	}
	return res, nil
}
