package slga

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcube/internal/engine"
	"cropcube/internal/logging"
)

type fakeEvaluator struct {
	engine.Evaluator
	rows     []engine.PointRow
	lastImg  *engine.Image
	lastN    int
	lastScal int
}

func (f *fakeEvaluator) SampleRegions(ctx context.Context, img *engine.Image, points []engine.Feature, scale int) ([]engine.PointRow, error) {
	f.lastImg = img
	f.lastN = len(points)
	f.lastScal = scale
	return f.rows, nil
}

func writePoints(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.geojson")
	data := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[117.87,-32.33]},"properties":{"site":"A"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[117.91,-32.29]},"properties":{"site":"B"}}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestValidateRejectsUnknownCombinations(t *testing.T) {
	base := DefaultConfig()
	base.AreaName = "Corrigin"
	base.PointsPath = "points.geojson"

	c := base
	c.Attributes = []string{"XYZ"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XYZ")
	assert.Contains(t, err.Error(), "allowed")

	c = base
	c.Stat = "MEAN"
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EV")

	c = base
	c.Depths = []string{"000_007"}
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000_007")

	c = base
	c.MakeParquet = false
	c.MakeCSV = false
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output sink")
}

func TestBuildImageBandNaming(t *testing.T) {
	img := BuildImage([]string{"SOC", "CLY"}, "EV", []string{"000_005", "005_015"})
	assert.Equal(t, []string{
		"SOC_000_005_EV", "SOC_005_015_EV",
		"CLY_000_005_EV", "CLY_005_015_EV",
	}, img.Bands())
}

func TestRunSamplesAndWritesTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AreaName = "Corrigin"
	cfg.PointsPath = writePoints(t)
	cfg.Attributes = []string{"SOC"}
	cfg.Depths = []string{"000_005"}
	cfg.ExportRoot = t.TempDir()
	cfg.MakeParquet = false
	cfg.MakeCSV = true

	eval := &fakeEvaluator{rows: []engine.PointRow{
		{Lon: 117.87, Lat: -32.33, Props: map[string]any{"SOC_000_005_EV": 1.8, "site": "A"}},
		{Lon: 117.91, Lat: -32.29, Props: map[string]any{"SOC_000_005_EV": 2.1, "site": "B"}},
	}}

	res, err := Run(context.Background(), eval, cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, eval.lastN)
	assert.Equal(t, NativeScale, eval.lastScal)
	assert.Contains(t, res.CSVPath, "Corrigin_SLGA_POINTS_EV_")

	data, err := os.ReadFile(res.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lon,lat,SOC_000_005_EV")
	assert.Contains(t, string(data), "117.87")
}

func TestRunFailsOnEmptySample(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AreaName = "Corrigin"
	cfg.PointsPath = writePoints(t)
	cfg.ExportRoot = t.TempDir()

	eval := &fakeEvaluator{}
	_, err := Run(context.Background(), eval, cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows")
}
