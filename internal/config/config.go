// Package config loads run settings from a YAML file and the environment on top of a named
// preset.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/notification"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/pipeline"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/sentinel"
)

// File mirrors the YAML document. Every field is optional; unset fields keep the preset value.
type File struct {
	Preset     string               `yaml:"preset"`
	Region     string               `yaml:"region"`
	Collection string               `yaml:"collection"`
	Start      string               `yaml:"start"`
	End        string               `yaml:"end"`
	CloudCover *float64             `yaml:"cloud_cover"`
	Mask       *bool                `yaml:"mask"`
	Statistics []string             `yaml:"statistics"`
	Scale      float64              `yaml:"scale"`
	Workers    int                  `yaml:"workers"`
	Retry      *imagery.RetryPolicy `yaml:"retry"`

	Output        OutputFile        `yaml:"output"`
	SentinelFile  SentinelFile      `yaml:"sentinel"`
	Notifications NotificationsFile `yaml:"notifications"`
}

type OutputFile struct {
	Dir             string `yaml:"dir"`
	Table           string `yaml:"table"`
	ThumbnailPrefix string `yaml:"thumbnail_prefix"`
	Months          int    `yaml:"months"`
	Checkpoints     *bool  `yaml:"checkpoints"`
	Report          *bool  `yaml:"report"`
}

// SentinelFile holds endpoints only. Credentials come from the environment.
type SentinelFile struct {
	BaseURL  string        `yaml:"base_url"`
	TokenURL string        `yaml:"token_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type NotificationsFile struct {
	DiscordSuccessURL string `yaml:"discord_success_url"`
	DiscordErrorURL   string `yaml:"discord_error_url"`
}

// LoadEnv loads the first .env file found among paths, defaulting to ./.env and ../.env.
// Missing files are not an error; variables already set are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		return nil
	}
	return nil
}

// Load reads a YAML file. Unknown keys are rejected. An empty path gives an empty File.
func Load(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}

// Pipeline resolves the run configuration: the preset, then the file, then the environment.
// The result is validated.
func (f *File) Pipeline() (pipeline.Config, error) {
	name := f.Preset
	if env := os.Getenv("AGRO_PRESET"); env != "" {
		name = env
	}
	if name == "" {
		name = pipeline.FullStatistics
	}
	c, err := pipeline.Preset(name)
	if err != nil {
		return pipeline.Config{}, err
	}

	if f.Region != "" {
		c.RegionPath = f.Region
	}
	if f.Collection != "" {
		c.Collection = f.Collection
	}
	if f.Start != "" {
		start, err := time.Parse(imagery.DateLayout, f.Start)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("invalid start: %w", err)
		}
		c = c.WithStart(start)
	}
	if f.End != "" {
		end, err := time.Parse(imagery.DateLayout, f.End)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("invalid end: %w", err)
		}
		c.End = end
	}
	if f.CloudCover != nil {
		c.CloudCover = *f.CloudCover
	}
	if f.Mask != nil {
		c.Mask = *f.Mask
	}
	if len(f.Statistics) > 0 {
		stats, err := ParseStatistics(f.Statistics)
		if err != nil {
			return pipeline.Config{}, err
		}
		c.Statistics = stats
	}
	if f.Scale > 0 {
		c.Scale = f.Scale
	}
	if f.Workers > 0 {
		c.Workers = f.Workers
	}
	if f.Retry != nil {
		c.Retry = *f.Retry
	}

	o := f.Output
	if o.Dir != "" {
		c.OutputDir = o.Dir
	}
	if o.Table != "" {
		c.TableName = o.Table
	}
	if o.ThumbnailPrefix != "" {
		c.ThumbnailPrefix = o.ThumbnailPrefix
	}
	if o.Months > 0 {
		c.Months = o.Months
	}
	if o.Checkpoints != nil {
		c.Checkpoints = *o.Checkpoints
	}
	if o.Report != nil {
		c.Report = *o.Report
	}

	if env := os.Getenv("AGRO_REGION"); env != "" {
		c.RegionPath = env
	}
	if env := os.Getenv("AGRO_OUTPUT_DIR"); env != "" {
		c.OutputDir = env
	}

	if err := c.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return c, nil
}

func ParseStatistics(names []string) ([]reducer.Statistic, error) {
	out := make([]reducer.Statistic, 0, len(names))
	for _, n := range names {
		s, err := reducer.ParseStatistic(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Sentinel returns the session settings. COPERNICUS_* variables win over the file.
func (f *File) Sentinel() sentinel.Config {
	c := sentinel.ConfigFromEnv()
	if c.BaseURL == "" {
		c.BaseURL = f.SentinelFile.BaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = f.SentinelFile.TokenURL
	}
	c.Timeout = f.SentinelFile.Timeout
	return c
}

// Discord returns the webhook settings. DISCORD_* variables win over the file.
func (f *File) Discord() *notification.Discord {
	d := notification.DiscordFromEnv()
	if d.SuccessURL == "" {
		d.SuccessURL = f.Notifications.DiscordSuccessURL
	}
	if d.ErrorURL == "" {
		d.ErrorURL = f.Notifications.DiscordErrorURL
	}
	return d
}
