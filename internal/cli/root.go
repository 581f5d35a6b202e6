// Package cli is the agroanalysis command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func Run() ExitCode {
	if err := NewRootCmd().Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "agroanalysis",
		Short:         "NDVI time series and monthly thumbnails for a crop region from Sentinel-2 imagery.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "YAML configuration file")
	flags.BoolP("verbose", "v", false, "set debug logging level")
	flags.Bool("offline", false, "use synthetic scenes instead of the remote service")
	flags.StringP("preset", "p", "", "named configuration (full-statistics, masked-mean)")
	flags.StringP("region", "r", "", "vector file holding the region of interest")
	flags.String("start", "", "first day, YYYY-MM-DD; the range keeps the preset length")
	flags.String("end", "", "exclusive last day, YYYY-MM-DD")
	flags.Float64("cloud-cover", 0, "keep images whose cloud cover is below this percentage")
	flags.Bool("mask", false, "apply the vegetation mask")
	flags.StringSlice("statistics", nil, "statistics to compute (mean,min,max,stdDev,median,p25,p50,p75)")
	flags.IntP("workers", "w", 0, "concurrent region reductions")
	flags.StringP("output", "o", "", "output directory")
	flags.Int("months", 0, "number of monthly thumbnails")
	flags.Bool("no-progress", false, "do not draw progress bars")

	rootCmd.AddCommand(
		NewTimeSeriesCmd().Command(),
		NewThumbnailsCmd().Command(),
		NewRunCmd().Command(),
		NewMenuCmd().Command(),
		NewPresetsCmd().Command(),
	)
	return rootCmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
