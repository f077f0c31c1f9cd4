package roi

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcube/internal/engine"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const twoPaddocks = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "north"},
     "geometry": {"type": "Polygon", "coordinates": [[[149.0,-35.0],[149.1,-35.0],[149.1,-35.1],[149.0,-35.1],[149.0,-35.0]]]}},
    {"type": "Feature", "properties": {"name": "south"},
     "geometry": {"type": "Polygon", "coordinates": [[[149.0,-35.1],[149.1,-35.1],[149.1,-35.2],[149.0,-35.2],[149.0,-35.1]]]}}
  ]
}`

func TestLoadRegionDissolvesFeatures(t *testing.T) {
	path := writeTemp(t, "roi.geojson", twoPaddocks)
	region, err := LoadRegion(path)
	require.NoError(t, err)

	g := region.Geometry()
	assert.Equal(t, "MultiPolygon", g.Type)

	b := region.Bound()
	assert.InDelta(t, 149.0, b.Min[0], 1e-9)
	assert.InDelta(t, -35.2, b.Min[1], 1e-9)
	assert.InDelta(t, 149.1, b.Max[0], 1e-9)
	assert.InDelta(t, -35.0, b.Max[1], 1e-9)
}

func TestLoadRegionSinglePolygon(t *testing.T) {
	const one = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`
	region, err := LoadRegion(writeTemp(t, "roi.geojson", one))
	require.NoError(t, err)
	assert.Equal(t, "Polygon", region.Geometry().Type)
}

func TestLoadRegionRejectsNonPolygonFiles(t *testing.T) {
	const pts = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[149.0,-35.0]}}]}`
	_, err := LoadRegion(writeTemp(t, "pts.geojson", pts))
	assert.Error(t, err)
}

type assetEvaluator struct {
	engine.Evaluator
	geom engine.Geometry
	err  error

	gotAsset string
}

func (f *assetEvaluator) FetchAssetGeometry(ctx context.Context, assetID string) (engine.Geometry, error) {
	f.gotAsset = assetID
	return f.geom, f.err
}

func TestRegionFromGeometryPolygon(t *testing.T) {
	g := engine.Geometry{Type: "Polygon", Coordinates: [][][]float64{
		{{149.0, -35.1}, {149.1, -35.1}, {149.1, -35.0}, {149.0, -35.0}, {149.0, -35.1}},
	}}
	region, err := RegionFromGeometry(g)
	require.NoError(t, err)
	assert.Equal(t, "Polygon", region.Geometry().Type)
	assert.InDelta(t, -35.1, region.Bound().Min[1], 1e-9)
}

func TestRegionFromGeometryDecodesGenericJSON(t *testing.T) {
	// Coordinates as an HTTP evaluator would hand them over: decoded into
	// generic interfaces, not typed float slices.
	var g engine.Geometry
	raw := `{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
		[[[2,2],[3,2],[3,3],[2,3],[2,2]]]]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &g))

	region, err := RegionFromGeometry(g)
	require.NoError(t, err)
	assert.Equal(t, "MultiPolygon", region.Geometry().Type)
	assert.InDelta(t, 3.0, region.Bound().Max[0], 1e-9)
}

func TestRegionFromGeometryRejectsNonPolygons(t *testing.T) {
	_, err := RegionFromGeometry(engine.Geometry{Type: "Point", Coordinates: []float64{1, 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Point")

	_, err = RegionFromGeometry(engine.Geometry{Type: "MultiPolygon", Coordinates: [][][][]float64{}})
	assert.Error(t, err)
}

func TestLoadRegionAssetResolvesThroughEvaluator(t *testing.T) {
	eval := &assetEvaluator{geom: engine.Geometry{Type: "Polygon", Coordinates: [][][]float64{
		{{117.8, -32.4}, {118.0, -32.4}, {118.0, -32.2}, {117.8, -32.2}, {117.8, -32.4}},
	}}}
	region, err := LoadRegionAsset(context.Background(), eval, "users/demo/paddocks")
	require.NoError(t, err)
	assert.Equal(t, "users/demo/paddocks", eval.gotAsset)
	assert.InDelta(t, 118.0, region.Bound().Max[0], 1e-9)
}

func TestLoadRegionAssetSurfacesRemoteErrors(t *testing.T) {
	eval := &assetEvaluator{err: errors.New("not found")}
	_, err := LoadRegionAsset(context.Background(), eval, "users/demo/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users/demo/missing")
}

func TestLoadPointsCarriesProperties(t *testing.T) {
	const pts = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"site":"A","station":41175},"geometry":{"type":"Point","coordinates":[149.123,-35.456]}},
	  {"type":"Feature","properties":{"site":"B"},"geometry":{"type":"Point","coordinates":[148.9,-35.0]}}]}`
	feats, err := LoadPoints(writeTemp(t, "pts.geojson", pts))
	require.NoError(t, err)
	require.Len(t, feats, 2)
	assert.InDelta(t, 149.123, feats[0].Lon, 1e-9)
	assert.InDelta(t, -35.456, feats[0].Lat, 1e-9)
	assert.Equal(t, "A", feats[0].Props["site"])
}

func TestLoadPointsCentroidFallback(t *testing.T) {
	const poly = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}}]}`
	feats, err := LoadPoints(writeTemp(t, "poly.geojson", poly))
	require.NoError(t, err)
	require.Len(t, feats, 1)
	assert.InDelta(t, 1.0, feats[0].Lon, 1e-9)
	assert.InDelta(t, 1.0, feats[0].Lat, 1e-9)
}

func TestLoadPointsEmptyFileErrors(t *testing.T) {
	_, err := LoadPoints(writeTemp(t, "empty.geojson", `{"type":"FeatureCollection","features":[]}`))
	assert.Error(t, err)
}
