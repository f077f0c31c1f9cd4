// Package runner sequences one cube pipeline run: region loading, catalog
// query, time-series composition, monthly reduction, cube assembly and the
// tabular exports. Early stages abort the run; export and preview failures
// are recorded and skipped.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/posthog/posthog-go"
	"github.com/sirupsen/logrus"

	"cropcube/internal/config"
	"cropcube/internal/cube"
	"cropcube/internal/engine"
	"cropcube/internal/export"
	"cropcube/internal/naming"
	"cropcube/internal/preview"
	"cropcube/internal/report"
	"cropcube/internal/roi"
	"cropcube/internal/sentinel"
	"cropcube/internal/timeseries"
)

// Pipeline owns one run's collaborators.
type Pipeline struct {
	cfg       *config.RunConfig
	eval      engine.Evaluator
	logger    *logrus.Logger
	telemetry posthog.Client
}

// New creates a pipeline. The configuration must already be validated.
func New(cfg *config.RunConfig, eval engine.Evaluator, logger *logrus.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, eval: eval, logger: logger}
}

// SetTelemetry attaches an optional analytics client. A nil client keeps
// telemetry off.
func (p *Pipeline) SetTelemetry(c posthog.Client) { p.telemetry = c }

// timed runs one stage and logs its wall time on success.
func (p *Pipeline) timed(name string, fn func() error) error {
	started := time.Now()
	if err := fn(); err != nil {
		return err
	}
	p.logger.Infof("[ok] %s in %.1fs", name, time.Since(started).Seconds())
	return nil
}

// Run executes the pipeline and always returns a report, even when an
// early stage fails.
func (p *Pipeline) Run(ctx context.Context) *report.RunReport {
	rep := report.New()
	p.logger.Infof("Run %s | area=%q year=%d | %s..%s", rep.RunID, p.cfg.AreaName, p.cfg.YieldYear, p.cfg.DateStart, p.cfg.DateEnd)

	var region *roi.Region
	roiSource := p.cfg.ROIPath
	if err := p.timed("load_roi", func() error {
		var err error
		if p.cfg.ROIPath != "" {
			region, err = roi.LoadRegion(p.cfg.ROIPath)
		} else {
			roiSource = p.cfg.ROIAsset
			region, err = roi.LoadRegionAsset(ctx, p.eval, p.cfg.ROIAsset)
		}
		return err
	}); err != nil {
		p.logger.Errorf("ROI loading failed: %v", err)
		rep.AddError("load_roi", err)
		return p.finish(rep)
	}
	rep.AddStep("ROI loaded", map[string]any{"source": roiSource})
	geom := region.Geometry()

	start, end := p.cfg.DateRange()
	var series *engine.ImageCollection
	if err := p.timed("compose_time_series", func() error {
		col, err := sentinel.BuildCollection(ctx, p.eval, p.cfg.CollectionID, start, end, geom)
		if err != nil {
			return err
		}
		series = timeseries.Compose(col, p.cfg.Indices)
		return nil
	}); err != nil {
		p.logger.Errorf("Time series failed: %v", err)
		rep.AddError("compose_time_series", err)
		return p.finish(rep)
	}
	rep.AddStep("Time series composed", map[string]any{"scenes": series.Size()})

	var monthly *engine.ImageCollection
	if err := p.timed("monthly_mosaics", func() error {
		var err error
		monthly, err = timeseries.MonthlyMosaics(series)
		return err
	}); err != nil {
		p.logger.Errorf("Monthly mosaics failed: %v", err)
		rep.AddError("monthly_mosaics", err)
		return p.finish(rep)
	}
	rep.AddStep("Monthly mosaics created", map[string]any{"months": monthly.Size()})

	var wide *engine.Image
	if err := p.timed("assemble_cube", func() error {
		var err error
		wide, err = cube.Assemble(monthly)
		return err
	}); err != nil {
		p.logger.Errorf("Assemble cube failed: %v", err)
		rep.AddError("assemble_cube", err)
		return p.finish(rep)
	}
	rep.AddStep("Cube assembled", map[string]any{"bands": len(wide.Bands())})

	if err := p.timed("export_cube_table", func() error {
		paths, err := export.CubeTable(ctx, p.eval, p.cfg, wide, geom, p.logger)
		for _, path := range paths {
			rep.AddArtifact(path, "table")
		}
		return err
	}); err != nil {
		p.logger.Errorf("Export table failed: %v", err)
		rep.AddError("export_cube_table", err)
	}

	if err := p.timed("export_pixel_samples", func() error {
		paths, err := export.PixelSamples(ctx, p.eval, p.cfg, wide, geom, p.logger)
		for _, path := range paths {
			rep.AddArtifact(path, "samples")
		}
		return err
	}); err != nil {
		p.logger.Errorf("Export samples failed: %v", err)
		rep.AddError("export_pixel_samples", err)
	}

	if p.cfg.Preview {
		if err := p.timed("preview", func() error {
			path := filepath.Join(p.cfg.ExportDir(), naming.MakeName(p.cfg.AreaName, p.cfg.YieldYear, "preview")+".tif")
			if err := preview.Quicklook(ctx, p.eval, monthly.First(), geom, region.Bound(), path, 512); err != nil {
				return err
			}
			rep.AddArtifact(path, "preview")
			return nil
		}); err != nil {
			p.logger.Warnf("Preview failed (skipping): %v", err)
			rep.AddError("preview", err)
		} else {
			rep.AddStep("Preview rendered", nil)
		}
	}

	return p.finish(rep)
}

// finish persists the report and emits the run telemetry event.
func (p *Pipeline) finish(rep *report.RunReport) *report.RunReport {
	path := filepath.Join(p.cfg.ExportDir(), fmt.Sprintf("run_report_%s.json", rep.RunID))
	if err := rep.ToJSON(path); err != nil {
		p.logger.Warnf("Failed to persist run report: %v", err)
	} else {
		p.logger.Infof("Run report: %s", path)
	}

	if p.telemetry != nil {
		_ = p.telemetry.Enqueue(posthog.Capture{
			DistinctId: rep.RunID,
			Event:      "pipeline_run",
			Properties: posthog.NewProperties().
				Set("area", p.cfg.AreaName).
				Set("year", p.cfg.YieldYear).
				Set("steps", len(rep.Steps)).
				Set("artifacts", len(rep.Artifacts)).
				Set("errors", len(rep.Errors)),
		})
	}
	return rep
}
