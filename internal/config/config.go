// Package config defines the run configuration and its validation. All
// validation happens before any remote call; failure messages enumerate
// the valid alternatives.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cropcube/internal/dates"
)

// DefaultCollectionID is the harmonized Sentinel-2 surface reflectance
// collection.
const DefaultCollectionID = "COPERNICUS/S2_SR_HARMONIZED"

// RunConfig drives one cube pipeline execution.
type RunConfig struct {
	AreaName  string `mapstructure:"area_name"`
	YieldYear int    `mapstructure:"yield_year"`

	// Exactly one ROI source is needed; the file takes precedence when
	// both are set.
	ROIPath  string `mapstructure:"roi_path"`
	ROIAsset string `mapstructure:"roi_asset"`

	DateStart string `mapstructure:"date_start"`
	DateEnd   string `mapstructure:"date_end"`

	CollectionID string   `mapstructure:"collection_id"`
	Indices      []string `mapstructure:"indices"`

	ComputeEndpoint string `mapstructure:"compute_endpoint"`

	ExportRoot string  `mapstructure:"export_root"`
	PixelScale int     `mapstructure:"pixel_scale"`
	MaxPixels  float64 `mapstructure:"max_pixels"`

	Preview     bool `mapstructure:"preview"`
	MakeParquet bool `mapstructure:"make_parquet"`
	MakeCSV     bool `mapstructure:"make_csv"`

	SampleSize int   `mapstructure:"sample_size"`
	SampleSeed int64 `mapstructure:"sample_seed"`

	RetryMax  int     `mapstructure:"retry_max"`
	RetryWait float64 `mapstructure:"retry_wait"` // seconds
}

// Defaults returns a RunConfig with the standard knobs set.
func Defaults() RunConfig {
	return RunConfig{
		CollectionID: DefaultCollectionID,
		Indices:      []string{"NDVI"},
		ExportRoot:   "Outputs",
		PixelScale:   10,
		MaxPixels:    1e13,
		Preview:      true,
		MakeParquet:  true,
		MakeCSV:      false,
		SampleSize:   5000,
		SampleSeed:   42,
		RetryMax:     3,
		RetryWait:    1.5,
	}
}

// Validate checks the configuration and fills derived defaults. It never
// performs I/O beyond creating the export directory tree.
func (c *RunConfig) Validate() error {
	if c.AreaName == "" {
		return fmt.Errorf("area_name must be provided")
	}
	if c.YieldYear <= 0 {
		return fmt.Errorf("yield_year must be a positive year, got %d", c.YieldYear)
	}
	if c.ROIPath == "" && c.ROIAsset == "" {
		return fmt.Errorf("either roi_path (vector file) or roi_asset (remote asset reference) must be provided")
	}
	if c.ComputeEndpoint == "" {
		return fmt.Errorf("compute_endpoint must be provided")
	}
	start, err := dates.ParseISO8601(c.DateStart)
	if err != nil {
		return fmt.Errorf("date_start: %w", err)
	}
	end, err := dates.ParseISO8601(c.DateEnd)
	if err != nil {
		return fmt.Errorf("date_end: %w", err)
	}
	if start.After(end) {
		return fmt.Errorf("date_start %s must be <= date_end %s", c.DateStart, c.DateEnd)
	}
	if c.CollectionID == "" {
		c.CollectionID = DefaultCollectionID
	}
	if c.PixelScale <= 0 {
		return fmt.Errorf("pixel_scale must be positive, got %d", c.PixelScale)
	}
	if err := os.MkdirAll(c.ExportDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	return nil
}

// DateRange returns the parsed start and end dates. Call after Validate.
func (c *RunConfig) DateRange() (time.Time, time.Time) {
	start, _ := dates.ParseISO8601(c.DateStart)
	end, _ := dates.ParseISO8601(c.DateEnd)
	return start, end
}

// ExportDir is the run's output directory: <root>/<area>/<year>.
func (c *RunConfig) ExportDir() string {
	return filepath.Join(c.ExportRoot, c.AreaName, strconv.Itoa(c.YieldYear))
}

// SamplerDir returns <root>/<area>/<tag> with its logs subdirectory,
// created idempotently.
func SamplerDir(root, area, tag string) (string, error) {
	d := filepath.Join(root, area, tag)
	if err := os.MkdirAll(filepath.Join(d, "logs"), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", d, err)
	}
	return d, nil
}
