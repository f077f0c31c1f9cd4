// Package roi loads the region of interest and sampling points from
// GeoJSON vector files. Geometry is parsed once at run start and treated as
// immutable afterwards. GeoJSON coordinates are WGS84 by specification,
// which is the coordinate system every downstream service expects.
package roi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"cropcube/internal/engine"
)

// Region is a single dissolved polygon used for spatial filtering and
// reduction.
type Region struct {
	geom orb.MultiPolygon
}

// LoadRegion reads a GeoJSON file and dissolves every polygonal feature
// into one region.
func LoadRegion(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ROI file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ROI file %s: %w", path, err)
	}

	var mp orb.MultiPolygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		}
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("ROI file %s contains no polygon features", path)
	}
	return &Region{geom: mp}, nil
}

// LoadRegionAsset resolves a remote asset reference to its polygonal
// footprint through the evaluator. The alternative to a local vector file:
// the region lives in the catalog and only its geometry comes back.
func LoadRegionAsset(ctx context.Context, eval engine.Evaluator, assetID string) (*Region, error) {
	g, err := eval.FetchAssetGeometry(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ROI asset %s: %w", assetID, err)
	}
	region, err := RegionFromGeometry(g)
	if err != nil {
		return nil, fmt.Errorf("ROI asset %s: %w", assetID, err)
	}
	return region, nil
}

// RegionFromGeometry converts an evaluated Polygon or MultiPolygon into a
// Region. Coordinates round-trip through JSON so both concrete float
// slices and generically-decoded responses are accepted.
func RegionFromGeometry(g engine.Geometry) (*Region, error) {
	raw, err := json.Marshal(g.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("invalid ROI coordinates: %w", err)
	}
	var mp orb.MultiPolygon
	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(raw, &coords); err != nil {
			return nil, fmt.Errorf("invalid Polygon coordinates: %w", err)
		}
		if len(coords) > 0 {
			mp = orb.MultiPolygon{polygonFromCoords(coords)}
		}
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(raw, &coords); err != nil {
			return nil, fmt.Errorf("invalid MultiPolygon coordinates: %w", err)
		}
		for _, p := range coords {
			mp = append(mp, polygonFromCoords(p))
		}
	default:
		return nil, fmt.Errorf("unsupported ROI geometry type %q", g.Type)
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("ROI geometry contains no polygons")
	}
	return &Region{geom: mp}, nil
}

func polygonFromCoords(coords [][][]float64) orb.Polygon {
	p := make(orb.Polygon, len(coords))
	for i, ring := range coords {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			r[j] = orb.Point{pt[0], pt[1]}
		}
		p[i] = r
	}
	return p
}

// Bound returns the region's bounding box.
func (r *Region) Bound() orb.Bound { return r.geom.Bound() }

// Geometry returns the region as an engine geometry for catalog filtering
// and server-side reduction.
func (r *Region) Geometry() engine.Geometry {
	if len(r.geom) == 1 {
		return engine.Geometry{Type: "Polygon", Coordinates: polygonCoords(r.geom[0])}
	}
	coords := make([][][][]float64, len(r.geom))
	for i, p := range r.geom {
		coords[i] = polygonCoords(p)
	}
	return engine.Geometry{Type: "MultiPolygon", Coordinates: coords}
}

func polygonCoords(p orb.Polygon) [][][]float64 {
	rings := make([][][]float64, len(p))
	for i, ring := range p {
		pts := make([][]float64, len(ring))
		for j, pt := range ring {
			pts[j] = []float64{pt[0], pt[1]}
		}
		rings[i] = pts
	}
	return rings
}

// LoadPoints reads point features from a GeoJSON file. Non-point
// geometries collapse to their centroid. Feature properties are carried
// through to the returned features.
func LoadPoints(path string) ([]engine.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read points file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse points file %s: %w", path, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("points file %s contains no features", path)
	}

	feats := make([]engine.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		var pt orb.Point
		switch g := f.Geometry.(type) {
		case orb.Point:
			pt = g
		default:
			pt, _ = planar.CentroidArea(g)
		}
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		feats = append(feats, engine.Feature{Lon: pt[0], Lat: pt[1], Props: props})
	}
	return feats, nil
}
