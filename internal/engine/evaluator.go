package engine

import (
	"context"
	"fmt"
	"time"
)

// Geometry is a GeoJSON-shaped region used for catalog filtering and
// server-side reduction. Coordinates follow GeoJSON nesting for the type.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// Feature is a point with carried properties, used for server-side
// multi-point sampling.
type Feature struct {
	Lon   float64        `json:"lon"`
	Lat   float64        `json:"lat"`
	Props map[string]any `json:"properties,omitempty"`
}

// Scene describes one catalog asset matched by a SceneQuery.
type Scene struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Bands     []string  `json:"bands"`
}

// SceneQuery filters a catalog collection by date range and region.
// The date range is a closed interval on date strings.
type SceneQuery struct {
	SourceID string    `json:"sourceId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Region   Geometry  `json:"region"`
}

// PointRow is one sampled point: coordinates plus attribute columns.
type PointRow struct {
	Lon   float64
	Lat   float64
	Props map[string]any
}

// Grid is a small evaluated pixel window, one row-major slice per band.
// Undefined pixels are NaN.
type Grid struct {
	Width  int
	Height int
	Bands  []string
	Values [][]float64
}

// Evaluator performs the remote half of the computation model: expression
// graphs are cheap, immutable descriptions; every method here triggers
// actual I/O and can fail with a RemoteError.
type Evaluator interface {
	// ListScenes resolves a catalog query to scene descriptors.
	ListScenes(ctx context.Context, q SceneQuery) ([]Scene, error)

	// ReduceRegionMean reduces every band of img to its mean over region.
	ReduceRegionMean(ctx context.Context, img *Image, region Geometry, scale int, maxPixels float64) (map[string]float64, error)

	// SamplePixels draws up to numPixels random pixels within region.
	SamplePixels(ctx context.Context, img *Image, region Geometry, scale, numPixels int, seed int64) ([]PointRow, error)

	// SampleRegions samples img at every feature, carrying feature
	// properties through to the output rows.
	SampleRegions(ctx context.Context, img *Image, points []Feature, scale int) ([]PointRow, error)

	// FetchGrid evaluates the named bands of img over region into a
	// width x height pixel window.
	FetchGrid(ctx context.Context, img *Image, region Geometry, bands []string, width, height int) (*Grid, error)

	// FetchAssetGeometry resolves a stored asset reference to its
	// polygonal footprint.
	FetchAssetGeometry(ctx context.Context, assetID string) (Geometry, error)
}

// RemoteError is a failure reported by the compute service.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("compute service error (status %d): %s", e.Status, e.Message)
}
