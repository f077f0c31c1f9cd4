package export

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcube/internal/config"
	"cropcube/internal/engine"
	"cropcube/internal/logging"
)

type fakeEvaluator struct {
	engine.Evaluator
	means   map[string]float64
	samples []engine.PointRow
	err     error
}

func (f *fakeEvaluator) ReduceRegionMean(ctx context.Context, img *engine.Image, region engine.Geometry, scale int, maxPixels float64) (map[string]float64, error) {
	return f.means, f.err
}

func (f *fakeEvaluator) SamplePixels(ctx context.Context, img *engine.Image, region engine.Geometry, scale, n int, seed int64) ([]engine.PointRow, error) {
	return f.samples, f.err
}

func testConfig(t *testing.T) *config.RunConfig {
	t.Helper()
	c := config.Defaults()
	c.AreaName = "Corrigin"
	c.YieldYear = 2018
	c.ROIPath = "roi.geojson"
	c.ComputeEndpoint = "https://compute.example.com"
	c.DateStart = "2018-01-01"
	c.DateEnd = "2018-03-31"
	c.ExportRoot = t.TempDir()
	c.MakeCSV = true
	require.NoError(t, c.Validate())
	return &c
}

func cubeImage() *engine.Image {
	return engine.SourceImage("cube", []string{"NDVI_2018-01", "NDVI_2018-02"}, time.Time{})
}

func TestCubeTableWritesOneRow(t *testing.T) {
	cfg := testConfig(t)
	eval := &fakeEvaluator{means: map[string]float64{"NDVI_2018-01": 0.41, "NDVI_2018-02": 0.55}}
	paths, err := CubeTable(context.Background(), eval, cfg, cubeImage(), engine.Geometry{}, logging.Discard())
	require.NoError(t, err)
	require.Len(t, paths, 2) // parquet + csv
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	assert.Contains(t, paths[0], "Corrigin_2018_cube_stats")
}

func TestPixelSamplesAttachCoordinates(t *testing.T) {
	cfg := testConfig(t)
	cfg.MakeParquet = false
	eval := &fakeEvaluator{samples: []engine.PointRow{
		{Lon: 149.01, Lat: -35.02, Props: map[string]any{"NDVI_2018-01": 0.3}},
		{Lon: 149.05, Lat: -35.08, Props: map[string]any{"NDVI_2018-01": 0.6}},
	}}
	paths, err := PixelSamples(context.Background(), eval, cfg, cubeImage(), engine.Geometry{}, logging.Discard())
	require.NoError(t, err)
	require.Len(t, paths, 1)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "lon,lat,NDVI_2018-01")
	assert.Contains(t, string(data), "149.01")
}

func TestExportSurfacesEvaluationErrors(t *testing.T) {
	cfg := testConfig(t)
	eval := &fakeEvaluator{err: errors.New("quota exceeded")}
	_, err := CubeTable(context.Background(), eval, cfg, cubeImage(), engine.Geometry{}, logging.Discard())
	assert.Error(t, err)
	_, err = PixelSamples(context.Background(), eval, cfg, cubeImage(), engine.Geometry{}, logging.Discard())
	assert.Error(t, err)
}

func TestExportRequiresASink(t *testing.T) {
	cfg := testConfig(t)
	cfg.MakeParquet = false
	cfg.MakeCSV = false
	eval := &fakeEvaluator{means: map[string]float64{}}
	_, err := CubeTable(context.Background(), eval, cfg, cubeImage(), engine.Geometry{}, logging.Discard())
	assert.Error(t, err)
}
