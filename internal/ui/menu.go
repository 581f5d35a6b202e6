// Package ui is the interactive terminal menu over the NDVI pipeline.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/pipeline"
)

// Actions are the pipeline steps the menu can start. Each receives the settings current at
// the time of the choice.
type Actions struct {
	TimeSeries func(context.Context, pipeline.Config) error
	Thumbnails func(context.Context, pipeline.Config) error
	Run        func(context.Context, pipeline.Config) error
}

type menuOption struct {
	title   string
	handler func(context.Context) error
}

type Menu struct {
	console    *Console
	cfg        pipeline.Config
	actions    Actions
	regionsDir string
}

// NewMenu starts from cfg. Region files offered for selection are listed from regionsDir.
func NewMenu(in io.Reader, out io.Writer, cfg pipeline.Config, actions Actions, regionsDir string) *Menu {
	return &Menu{console: NewConsole(in, out), cfg: cfg, actions: actions, regionsDir: regionsDir}
}

// Config is the current selection.
func (m *Menu) Config() pipeline.Config {
	return m.cfg
}

// Show loops until the user exits, the input ends or ctx is done. Failing actions are
// reported and the loop continues.
func (m *Menu) Show(ctx context.Context) error {
	m.console.Banner()
	exit := errors.New("exit")
	menuOptions := []menuOption{
		{"Choose a preset", m.choosePreset},
		{"Choose the region file", m.chooseRegion},
		{"Change the start date", m.changeStart},
		{"Build the NDVI time series table", m.action(m.actions.TimeSeries)},
		{"Export the monthly NDVI thumbnails", m.action(m.actions.Thumbnails)},
		{"Run everything (table, thumbnails and report)", m.action(m.actions.Run)},
		{"Show the current settings", m.showSettings},
		{"Exit the application", func(context.Context) error { return exit }},
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(m.console.out, "%s===================%s\n", ColorBlue, ColorReset)
		for i, opt := range menuOptions {
			fmt.Fprintf(m.console.out, "%s%d. %s%s\n", ColorBlue, i+1, opt.title, ColorReset)
		}

		choice, err := m.console.ReadInt("Please enter your choice: ", 1, len(menuOptions))
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			m.console.PrintError(err.Error())
			continue
		}

		err = menuOptions[choice-1].handler(ctx)
		switch {
		case errors.Is(err, exit):
			fmt.Fprintln(m.console.out, "Exiting...")
			return nil
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			m.console.PrintError(err.Error())
		}
	}
}

func (m *Menu) action(run func(context.Context, pipeline.Config) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if run == nil {
			return fmt.Errorf("not available")
		}
		if err := run(ctx, m.cfg); err != nil {
			return err
		}
		m.console.PrintSuccess("Done.")
		return nil
	}
}

// choosePreset replaces the settings with a preset, keeping region and output locations.
func (m *Menu) choosePreset(context.Context) error {
	name, err := m.console.Choose("Available presets", pipeline.PresetNames())
	if err != nil {
		return err
	}
	next, err := pipeline.Preset(name)
	if err != nil {
		return err
	}
	next.RegionPath = m.cfg.RegionPath
	next.OutputDir = m.cfg.OutputDir
	next.Workers = m.cfg.Workers
	m.cfg = next
	m.console.PrintSuccess(fmt.Sprintf("Preset %s selected.", name))
	return nil
}

func (m *Menu) chooseRegion(context.Context) error {
	regions, err := ListRegions(m.regionsDir)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		m.console.PrintWarning(fmt.Sprintf("To add a region, add a '.shp' or '.geojson' file to '%s'.", m.regionsDir))
		return nil
	}
	path, err := m.console.Choose("Available regions", regions)
	if err != nil {
		return err
	}
	m.cfg.RegionPath = path
	return nil
}

func (m *Menu) changeStart(context.Context) error {
	start, err := m.console.ReadDate("Enter the start date (YYYY-MM-DD): ")
	if err != nil {
		return err
	}
	m.cfg = m.cfg.WithStart(start)
	return nil
}

func (m *Menu) showSettings(context.Context) error {
	c := m.cfg
	fmt.Fprintf(m.console.out, "%s\npreset:      %s\nregion:      %s\ndates:       %s to %s\ncloud cover: < %g%%\nmask:        %t\nstatistics:  %v\noutput:      %s%s\n",
		ColorGreen, c.Name, c.RegionPath, c.Start.Format(imagery.DateLayout), c.End.Format(imagery.DateLayout),
		c.CloudCover, c.Mask, c.Statistics, c.OutputDir, ColorReset)
	return nil
}
