// Package export reduces the assembled cube to tabular artifacts: a
// one-row region mean and an up-to-N-row random pixel sample.
package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"cropcube/internal/config"
	"cropcube/internal/engine"
	"cropcube/internal/naming"
	"cropcube/internal/table"
)

// writeTable writes tb to the configured sinks and returns the produced
// paths, parquet first.
func writeTable(cfg *config.RunConfig, tb *table.Table, stem string) ([]string, error) {
	base := naming.MakeName(cfg.AreaName, cfg.YieldYear, stem)
	var paths []string
	if cfg.MakeParquet {
		p := filepath.Join(cfg.ExportDir(), base+".parquet")
		if err := tb.WriteParquet(p); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if cfg.MakeCSV {
		p := filepath.Join(cfg.ExportDir(), base+".csv")
		if err := tb.WriteCSV(p); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no output sink enabled: set make_parquet and/or make_csv")
	}
	return paths, nil
}

// CubeTable reduces every cube band to its mean over the region and writes
// a single-row table.
func CubeTable(ctx context.Context, eval engine.Evaluator, cfg *config.RunConfig, img *engine.Image, region engine.Geometry, logger *logrus.Logger) ([]string, error) {
	values, err := eval.ReduceRegionMean(ctx, img, region, cfg.PixelScale, cfg.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("region reduction failed: %w", err)
	}

	tb := table.New()
	tb.EnsureColumns(img.Bands()...)
	row := make(map[string]any, len(values))
	for k, v := range values {
		row[k] = v
	}
	tb.Append(row)

	paths, err := writeTable(cfg, tb, "cube_stats")
	if err != nil {
		return paths, err
	}
	logger.Infof("Saved table: %s", paths[0])
	return paths, nil
}

// PixelSamples draws up to cfg.SampleSize random pixels within the region
// and writes a row-per-point table with coordinates attached.
func PixelSamples(ctx context.Context, eval engine.Evaluator, cfg *config.RunConfig, img *engine.Image, region engine.Geometry, logger *logrus.Logger) ([]string, error) {
	rows, err := eval.SamplePixels(ctx, img, region, cfg.PixelScale, cfg.SampleSize, cfg.SampleSeed)
	if err != nil {
		return nil, fmt.Errorf("pixel sampling failed: %w", err)
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

	paths, err := writeTable(cfg, tb, "samples")
	if err != nil {
		return paths, err
	}
	logger.Infof("Saved samples: %s [%d rows]", paths[0], tb.Len())
	return paths, nil
}
