package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/config"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery/memory"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/notification"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/pipeline"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/region"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/sentinel"
)

// app is what every command needs once flags, file and environment are resolved.
type app struct {
	cfg      pipeline.Config
	file     *config.File
	log      *slog.Logger
	offline  bool
	progress bool
	discord  *notification.Discord
}

func newApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	log := newLogger(verbose)

	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	path, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFileFlags(cmd, file); err != nil {
		return nil, err
	}
	cfg, err := file.Pipeline()
	if err != nil {
		return nil, err
	}
	if cfg, err = applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	offline, _ := flags.GetBool("offline")
	noProgress, _ := flags.GetBool("no-progress")
	return &app{
		cfg:      cfg,
		file:     file,
		log:      log,
		offline:  offline,
		progress: !noProgress,
		discord:  file.Discord(),
	}, nil
}

// applyFileFlags sets the flags that pick the base of the configuration.
func applyFileFlags(cmd *cobra.Command, file *config.File) error {
	flags := cmd.Flags()
	if flags.Changed("preset") {
		v, err := flags.GetString("preset")
		if err != nil {
			return fmt.Errorf("failed to get preset flag: %w", err)
		}
		file.Preset = v
	}
	if flags.Changed("statistics") {
		v, err := flags.GetStringSlice("statistics")
		if err != nil {
			return fmt.Errorf("failed to get statistics flag: %w", err)
		}
		file.Statistics = v
	}
	return nil
}

// applyFlags overrides the resolved configuration with every flag given on the command line.
func applyFlags(cmd *cobra.Command, cfg pipeline.Config) (pipeline.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("region") {
		cfg.RegionPath, _ = flags.GetString("region")
	}
	if flags.Changed("start") {
		s, _ := flags.GetString("start")
		start, err := time.Parse(imagery.DateLayout, s)
		if err != nil {
			return cfg, fmt.Errorf("invalid start: %w", err)
		}
		cfg = cfg.WithStart(start)
	}
	if flags.Changed("end") {
		s, _ := flags.GetString("end")
		end, err := time.Parse(imagery.DateLayout, s)
		if err != nil {
			return cfg, fmt.Errorf("invalid end: %w", err)
		}
		cfg.End = end
	}
	if flags.Changed("cloud-cover") {
		cfg.CloudCover, _ = flags.GetFloat64("cloud-cover")
	}
	if flags.Changed("mask") {
		cfg.Mask, _ = flags.GetBool("mask")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("output") {
		cfg.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("months") {
		cfg.Months, _ = flags.GetInt("months")
	}
	return cfg, cfg.Validate()
}

// session connects to the remote service, or builds synthetic scenes over the region of cfg
// when running offline.
func (a *app) session(ctx context.Context, cfg pipeline.Config) (imagery.Session, error) {
	if !a.offline {
		sc := a.file.Sentinel()
		sc.Logger = a.log
		return sentinel.NewClient(ctx, sc)
	}

	reg, err := region.Load(cfg.RegionPath)
	if err != nil {
		return nil, err
	}
	end := cfg.End
	first := time.Date(cfg.Start.Year(), cfg.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	if months := first.AddDate(0, cfg.Months, 0); months.After(end) {
		end = months
	}
	s := memory.New()
	s.Add(imagery.Sentinel2L2A, memory.Synthetic(reg, memory.SyntheticOptions{
		Start: cfg.Start.Add(13 * time.Hour),
		End:   end,
		Seed:  cfg.Start.Unix(),
	})...)
	a.log.Info("offline session ready", "region", cfg.RegionPath)
	return s, nil
}

func (a *app) runner(ctx context.Context, cfg pipeline.Config) (*pipeline.Runner, error) {
	s, err := a.session(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(s, cfg, a.log, a.progress), nil
}

// notify reports the outcome of a run. Webhook failures are only logged.
func (a *app) notify(ctx context.Context, res *pipeline.Result, runErr error) {
	if !a.discord.Enabled() {
		return
	}
	var err error
	if runErr != nil {
		err = a.discord.SendError(ctx, fmt.Sprintf("%s: %v", a.cfg.Name, runErr))
	} else {
		err = a.discord.SendSuccess(ctx, fmt.Sprintf("%s: %d images, %d rows, %d thumbnails in %s.",
			a.cfg.Name, res.Images, len(res.Rows), len(res.Thumbnails), res.Elapsed.Round(time.Second)))
	}
	if err != nil {
		a.log.Warn("notification failed", "error", err)
	}
}
