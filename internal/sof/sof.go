// Package sof samples the TERN Soil Organic Fraction national rasters at
// point locations. The rasters are cloud-optimized GeoTIFFs read over HTTP;
// only the published (family, depth, stat) combinations exist, so every
// request is checked against the availability matrix first.
package sof

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"cropcube/internal/config"
	"cropcube/internal/naming"
	"cropcube/internal/roi"
	"cropcube/internal/table"
)

// BaseURL is the TERN landscape-grid SOF v1 root.
const BaseURL = "https://data.tern.org.au/model-derived/slga/NationalMaps/SoilAndLandscapeGrid/SOF/v1"

// Families maps family names to their directory under BaseURL.
var Families = map[string]string{
	"Fractions_Density": "SOF_Fractions_Density",
	"Proportions":       "SOF_Proportions",
	"Stocks":            "SOF_Stocks",
}

// Fractions are the organic carbon fractions: mineral-associated,
// particulate and pyrogenic.
var Fractions = []string{"MAOC", "POC", "PyOC"}

// Depths are the vertical windows published for density and proportion
// rasters. Stocks use the single 000_030 window instead.
var Depths = []string{"000_005", "005_015", "015_030"}

// Stats are the published summary statistics.
var Stats = []string{"EV", "05", "95"}

// Available reports whether the (family, depth, stat) raster is published.
// The matrix is irregular: proportions below the top window only carry the
// percentile rasters, and stocks exist solely as 000_030 EV.
func Available(family, depth, stat string) bool {
	switch family {
	case "Fractions_Density":
		return contains(Depths, depth) && contains(Stats, stat)
	case "Proportions":
		switch depth {
		case "000_005":
			return contains(Stats, stat)
		case "005_015", "015_030":
			return stat == "05" || stat == "95"
		}
		return false
	case "Stocks":
		return depth == "000_030" && stat == "EV"
	}
	return false
}

// URL returns the COG URL for one published raster.
func URL(family, depth, stat, fraction string) (string, error) {
	famDir, ok := Families[family]
	if !ok {
		return "", fmt.Errorf("unknown family %q; choose from %v", family, familyNames())
	}
	var fname string
	if family == "Stocks" {
		if depth != "000_030" || stat != "EV" {
			return "", fmt.Errorf("Stocks: only depth 000_030 and stat EV are available")
		}
		fname = fmt.Sprintf("SOF_000_030_EV_N_P_AU_TRN_N_20221006_Fractions_Stock_%s.tif", fraction)
	} else {
		if !contains(Depths, depth) {
			return "", fmt.Errorf("depth %q invalid for %s; use one of %v", depth, family, Depths)
		}
		if !contains(Stats, stat) {
			return "", fmt.Errorf("stat must be one of %v, got %q", Stats, stat)
		}
		suffix := "Proportion"
		if family == "Fractions_Density" {
			suffix = "Fraction_Density"
		}
		fname = fmt.Sprintf("SOF_%s_%s_N_P_AU_TRN_N_20221006_%s_%s.tif", depth, stat, suffix, fraction)
	}
	return fmt.Sprintf("%s/%s/%s", BaseURL, famDir, fname), nil
}

// ColumnName is {fraction}_{depth}_{stat}_{kind} where kind encodes the
// family: STOCK, DENS or PROP.
func ColumnName(family, depth, stat, fraction string) string {
	kind := "PROP"
	switch family {
	case "Stocks":
		kind = "STOCK"
		depth = "000_030"
	case "Fractions_Density":
		kind = "DENS"
	}
	return fmt.Sprintf("%s_%s_%s_%s", fraction, depth, stat, kind)
}

func familyNames() []string {
	names := make([]string, 0, len(Families))
	for k := range Families {
		names = append(names, k)
	}
	return names
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// RasterSampler reads one raster at lon/lat positions. A nil value means
// the raster is masked at that point.
type RasterSampler interface {
	SampleAtPoints(url string, lons, lats []float64) ([]*float64, error)
}

// Config drives one SOF point sampling run.
type Config struct {
	AreaName   string
	PointsPath string
	Families   []string
	Fractions  []string
	Depths     []string
	Stat       string
	ExportRoot string
	CookieFile string

	MakeParquet bool
	MakeCSV     bool
}

// DefaultConfig returns a Config with the standard knobs set.
func DefaultConfig() Config {
	return Config{
		Families:    []string{"Fractions_Density"},
		Fractions:   []string{"MAOC", "POC", "PyOC"},
		Depths:      []string{"000_005", "005_015", "015_030"},
		Stat:        "EV",
		ExportRoot:  "Outputs",
		MakeParquet: true,
	}
}

// Validate checks the requested families, fractions and depths.
func (c *Config) Validate() error {
	if c.AreaName == "" {
		return fmt.Errorf("area name must be provided")
	}
	if c.PointsPath == "" {
		return fmt.Errorf("points path must be provided")
	}
	for _, fam := range c.Families {
		if _, ok := Families[fam]; !ok {
			return fmt.Errorf("unknown family %q; choose from %v", fam, familyNames())
		}
	}
	stocksOnly := len(c.Families) == 1 && c.Families[0] == "Stocks"
	for _, frac := range c.Fractions {
		if !contains(Fractions, frac) {
			return fmt.Errorf("unknown fraction %q; choose from %v", frac, Fractions)
		}
	}
	for _, d := range c.Depths {
		if !contains(Depths, d) && !stocksOnly {
			return fmt.Errorf("invalid depth %q; allowed: %v", d, Depths)
		}
	}
	if !contains(Stats, c.Stat) {
		return fmt.Errorf("stat must be one of %v, got %q", Stats, c.Stat)
	}
	if !c.MakeParquet && !c.MakeCSV {
		return fmt.Errorf("no output sink enabled: set make_parquet and/or make_csv")
	}
	return nil
}

type request struct {
	family, depth, stat, fraction string
}

// plan expands the configuration into the published raster requests,
// logging a warning for every combination that is not published.
func plan(cfg Config, logger *logrus.Logger) []request {
	var reqs []request
	for _, fam := range cfg.Families {
		if fam == "Stocks" {
			for _, frac := range cfg.Fractions {
				if Available(fam, "000_030", "EV") {
					reqs = append(reqs, request{fam, "000_030", "EV", frac})
				} else {
					logger.Warnf("[skip] %s EV 000_030 %s: not published", fam, frac)
				}
			}
			continue
		}
		for _, d := range cfg.Depths {
			for _, frac := range cfg.Fractions {
				if Available(fam, d, cfg.Stat) {
					reqs = append(reqs, request{fam, d, cfg.Stat, frac})
				} else {
					logger.Warnf("[skip] %s %s %s %s: not published", fam, cfg.Stat, d, frac)
				}
			}
		}
	}
	return reqs
}

// Result summarizes a sampling run.
type Result struct {
	ParquetPath string
	CSVPath     string
	Rows        int
	Columns     int
}

// Run samples every requested raster at the configured points and writes a
// wide table: one row per point, one column per raster. A raster that
// fails to sample still yields its column, filled with nulls.
func Run(cfg Config, sampler RasterSampler, logger *logrus.Logger) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	logger.Infof("SOF points run | area=%q | fam=%v | frac=%v | depths=%v | stat=%s",
		cfg.AreaName, cfg.Families, cfg.Fractions, cfg.Depths, cfg.Stat)

	points, err := roi.LoadPoints(cfg.PointsPath)
	if err != nil {
		return Result{}, err
	}
	lons := make([]float64, len(points))
	lats := make([]float64, len(points))
	for i, p := range points {
		lons[i] = p.Lon
		lats[i] = p.Lat
	}

	reqs := plan(cfg, logger)
	if len(reqs) == 0 {
		return Result{}, fmt.Errorf("no published rasters match the requested combinations")
	}

	bar := progressbar.Default(int64(len(reqs)), "Sampling SOF rasters")
	cols := make([]string, 0, len(reqs))
	values := make(map[string][]*float64, len(reqs))
	for _, r := range reqs {
		url, err := URL(r.family, r.depth, r.stat, r.fraction)
		if err != nil {
			return Result{}, err
		}
		col := ColumnName(r.family, r.depth, r.stat, r.fraction)
		cols = append(cols, col)
		vals, err := sampler.SampleAtPoints(url, lons, lats)
		if err != nil {
			logger.Errorf("Failed sampling %s: %v", url, err)
			values[col] = nil
		} else {
			values[col] = vals
			logger.Infof("Sampled: %s", col)
		}
		bar.Add(1)
	}
	bar.Finish()

	tb := table.New()
	tb.EnsureColumns("lon", "lat")
	tb.EnsureColumns(cols...)
	for i, p := range points {
		row := map[string]any{"lon": p.Lon, "lat": p.Lat}
		for k, v := range p.Props {
			row[k] = v
		}
		for _, col := range cols {
			if vals := values[col]; vals != nil && vals[i] != nil {
				row[col] = *vals[i]
			}
		}
		tb.Append(row)
	}

	dir, err := config.SamplerDir(cfg.ExportRoot, cfg.AreaName, "SOF")
	if err != nil {
		return Result{}, err
	}
	base := naming.SamplerName(cfg.AreaName, "SOF_POINTS", time.Now())

	res := Result{Rows: tb.Len(), Columns: len(cols)}
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
