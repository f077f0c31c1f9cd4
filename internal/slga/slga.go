// Package slga samples Soil and Landscape Grid of Australia attribute
// rasters at point locations. Sampling is one server-side batch operation;
// the per-point fan-out happens remotely.
package slga

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"cropcube/internal/config"
	"cropcube/internal/engine"
	"cropcube/internal/naming"
	"cropcube/internal/roi"
	"cropcube/internal/table"
)

// AssetID is the SLGA catalog collection.
const AssetID = "CSIRO/SLGA"

// NativeScale is the grid's native resolution in meters.
const NativeScale = 90

// Attributes maps attribute codes to their descriptions.
var Attributes = map[string]string{
	"SOC": "Soil Organic Carbon",
	"CLY": "Clay",
	"SLT": "Silt",
	"SND": "Sand",
	"pHc": "pH (CaCl2)",
	"AWC": "Available Water Capacity",
	"ECE": "Effective Cation Exchange Capacity",
	"NTO": "Total Nitrogen",
	"PTO": "Total Phosphorus",
	"DES": "Soil Depth",
	"DER": "Regolith Depth",
}

// Depths are the published vertical windows.
var Depths = []string{"000_005", "005_015", "015_030", "030_060", "060_100", "100_200"}

// Stats are the published summary statistics: estimated value, 5th and
// 95th percentile.
var Stats = []string{"EV", "05", "95"}

// Config drives one SLGA point sampling run.
type Config struct {
	AreaName   string
	PointsPath string
	Attributes []string
	Stat       string
	Depths     []string
	Scale      int
	ExportRoot string

	MakeParquet bool
	MakeCSV     bool
}

// DefaultConfig returns a Config with the standard knobs set.
func DefaultConfig() Config {
	return Config{
		Attributes:  []string{"SOC"},
		Stat:        "EV",
		Depths:      []string{"000_005", "005_015", "015_030"},
		Scale:       NativeScale,
		ExportRoot:  "Outputs",
		MakeParquet: true,
	}
}

// Validate checks every requested combination against the published
// allow-lists before any remote call.
func (c *Config) Validate() error {
	if c.AreaName == "" {
		return fmt.Errorf("area name must be provided")
	}
	if c.PointsPath == "" {
		return fmt.Errorf("points path must be provided")
	}
	if len(c.Attributes) == 0 {
		return fmt.Errorf("at least one attribute is required; allowed: %v", attributeCodes())
	}
	for _, a := range c.Attributes {
		if _, ok := Attributes[a]; !ok {
			return fmt.Errorf("unknown attribute %q; allowed: %v", a, attributeCodes())
		}
	}
	if !contains(Stats, c.Stat) {
		return fmt.Errorf("stat must be one of %v, got %q", Stats, c.Stat)
	}
	if len(c.Depths) == 0 {
		return fmt.Errorf("at least one depth is required; allowed: %v", Depths)
	}
	for _, d := range c.Depths {
		if !contains(Depths, d) {
			return fmt.Errorf("invalid depth %q; allowed: %v", d, Depths)
		}
	}
	if c.Scale <= 0 {
		c.Scale = NativeScale
	}
	if !c.MakeParquet && !c.MakeCSV {
		return fmt.Errorf("no output sink enabled: set make_parquet and/or make_csv")
	}
	return nil
}

func attributeCodes() []string {
	codes := make([]string, 0, len(Attributes))
	for k := range Attributes {
		codes = append(codes, k)
	}
	return codes
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// BuildImage concatenates one band per (attribute, depth) pair at the
// requested statistic, named {attr}_{depth}_{stat}.
func BuildImage(attributes []string, stat string, depths []string) *engine.Image {
	var out *engine.Image
	for _, attr := range attributes {
		bands := make([]string, len(depths))
		for i, d := range depths {
			bands[i] = fmt.Sprintf("%s_%s_%s", attr, d, stat)
		}
		img := engine.SourceImage(AssetID+"/"+attr, bands, time.Time{}).Select(bands...)
		if out == nil {
			out = img
		} else {
			out = out.AddBands(img)
		}
	}
	return out
}

// Result summarizes a sampling run.
type Result struct {
	ParquetPath string
	CSVPath     string
	Rows        int
}

// Run validates the configuration, loads the points, samples the SLGA
// bands server-side and writes the point table.
func Run(ctx context.Context, eval engine.Evaluator, cfg Config, logger *logrus.Logger) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	logger.Infof("SLGA points run | area=%q | attrs=%v | stat=%s | depths=%v", cfg.AreaName, cfg.Attributes, cfg.Stat, cfg.Depths)

	points, err := roi.LoadPoints(cfg.PointsPath)
	if err != nil {
		return Result{}, err
	}

	img := BuildImage(cfg.Attributes, cfg.Stat, cfg.Depths)
	rows, err := eval.SampleRegions(ctx, img, points, cfg.Scale)
	if err != nil {
		return Result{}, fmt.Errorf("SLGA sampling failed: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("SLGA sampling returned no rows; check points and attribute availability")
	}

	tb := table.New()
	tb.EnsureColumns("lon", "lat")
	tb.EnsureColumns(img.Bands()...)
	for _, r := range rows {
		row := map[string]any{"lon": r.Lon, "lat": r.Lat}
		for k, v := range r.Props {
			row[k] = v
		}
		tb.Append(row)
	}

	dir, err := config.SamplerDir(cfg.ExportRoot, cfg.AreaName, "SLGA")
	if err != nil {
		return Result{}, err
	}
	base := naming.SamplerName(cfg.AreaName, "SLGA_POINTS_"+cfg.Stat, time.Now())

	res := Result{Rows: tb.Len()}
	if cfg.MakeParquet {
		res.ParquetPath = filepath.Join(dir, base+".parquet")
		if err := tb.WriteParquet(res.ParquetPath); err != nil {
			return res, err
		}
	}
	if cfg.MakeCSV {
		res.CSVPath = filepath.Join(dir, base+".csv")
		if err := tb.WriteCSV(res.CSVPath); err != nil {
			return res, err
		}
	}
	logger.Infof("Saved: %s / %s [%d rows]", res.ParquetPath, res.CSVPath, res.Rows)
	return res, nil
}
