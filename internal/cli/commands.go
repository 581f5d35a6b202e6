package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/pipeline"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/properties"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/ui"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

type TimeSeriesCmd struct{}

func NewTimeSeriesCmd() *TimeSeriesCmd {
	return &TimeSeriesCmd{}
}

func (c *TimeSeriesCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "timeseries",
		Short: "Build the per-date NDVI statistics table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return timeSeries(ctx, a, a.cfg, cmd.OutOrStdout())
		},
	}
}

func timeSeries(ctx context.Context, a *app, cfg pipeline.Config, out io.Writer) error {
	r, err := a.runner(ctx, cfg)
	if err != nil {
		return err
	}
	reg, err := r.LoadRegion()
	if err != nil {
		return err
	}
	rows, n, err := r.TimeSeries(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d images, %d rows written to %s\n", n, len(rows), r.TablePath())
	return nil
}

type ThumbnailsCmd struct{}

func NewThumbnailsCmd() *ThumbnailsCmd {
	return &ThumbnailsCmd{}
}

func (c *ThumbnailsCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "thumbnails",
		Short: "Export one NDVI composite PNG per calendar month",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return thumbnails(ctx, a, a.cfg, cmd.OutOrStdout())
		},
	}
}

func thumbnails(ctx context.Context, a *app, cfg pipeline.Config, out io.Writer) error {
	r, err := a.runner(ctx, cfg)
	if err != nil {
		return err
	}
	reg, err := r.LoadRegion()
	if err != nil {
		return err
	}
	paths, err := r.Thumbnails(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d thumbnails written to %s\n", len(paths), r.ThumbnailDir())
	return nil
}

type RunCmd struct{}

func NewRunCmd() *RunCmd {
	return &RunCmd{}
}

func (c *RunCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the table and the thumbnails, then write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("report") {
				a.cfg.Report, _ = cmd.Flags().GetBool("report")
			}
			ctx, cancel := signalContext()
			defer cancel()
			return run(ctx, a, a.cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("report", false, "write chart, timelapse, region GeoJSON and summaries")
	return cmd
}

func run(ctx context.Context, a *app, cfg pipeline.Config, out io.Writer) error {
	r, err := a.runner(ctx, cfg)
	if err != nil {
		a.notify(ctx, nil, err)
		return err
	}
	res, err := r.Run(ctx)
	a.notify(ctx, res, err)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d images, %d rows written to %s\n", res.Images, len(res.Rows), res.TablePath)
	fmt.Fprintf(out, "%d thumbnails written to %s\n", len(res.Thumbnails), r.ThumbnailDir())
	if res.Report.Region != "" {
		fmt.Fprintf(out, "report written to %s\n", r.ReportDir())
	}
	return nil
}

type MenuCmd struct{}

func NewMenuCmd() *MenuCmd {
	return &MenuCmd{}
}

func (c *MenuCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			out := cmd.OutOrStdout()
			actions := ui.Actions{
				TimeSeries: func(ctx context.Context, cfg pipeline.Config) error { return timeSeries(ctx, a, cfg, out) },
				Thumbnails: func(ctx context.Context, cfg pipeline.Config) error { return thumbnails(ctx, a, cfg, out) },
				Run: func(ctx context.Context, cfg pipeline.Config) error {
					a.cfg = cfg
					return run(ctx, a, cfg, out)
				},
			}
			return ui.NewMenu(os.Stdin, out, a.cfg, actions, properties.DataPath("raw")).Show(ctx)
		},
	}
}

type PresetsCmd struct{}

func NewPresetsCmd() *PresetsCmd {
	return &PresetsCmd{}
}

func (c *PresetsCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the named configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range pipeline.PresetNames() {
				p, err := pipeline.Preset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-16s %s to %s  cloud < %g%%  mask=%t  statistics=%v\n",
					name, p.Start.Format(imagery.DateLayout), p.End.Format(imagery.DateLayout),
					p.CloudCover, p.Mask, p.Statistics)
			}
			return nil
		},
	}
}
