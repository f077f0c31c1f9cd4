package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"cropcube/pkg/retry"
)

const userAgent = "cropcube/1.0"

// HTTPEvaluator talks to an expression-graph compute service over HTTPS.
// Requests carry the serialized graph; non-2xx responses surface as
// RemoteError and are retried under the shared backoff policy.
type HTTPEvaluator struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
}

// NewHTTPEvaluator creates an evaluator with system proxy support and a
// fixed per-request timeout.
func NewHTTPEvaluator(baseURL string, policy retry.Policy) *HTTPEvaluator {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}
	return &HTTPEvaluator{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		policy: policy,
	}
}

func (e *HTTPEvaluator) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return e.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request to %s failed: %w", path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &RemoteError{Status: resp.StatusCode, Message: string(data)}
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response from %s: %w", path, err)
		}
		return nil
	})
}

// ListScenes resolves a catalog query to scene descriptors.
func (e *HTTPEvaluator) ListScenes(ctx context.Context, q SceneQuery) ([]Scene, error) {
	var out struct {
		Scenes []Scene `json:"scenes"`
	}
	if err := e.post(ctx, "/v1/scenes", q, &out); err != nil {
		return nil, err
	}
	return out.Scenes, nil
}

// ReduceRegionMean reduces every band of img to its mean over region.
func (e *HTTPEvaluator) ReduceRegionMean(ctx context.Context, img *Image, region Geometry, scale int, maxPixels float64) (map[string]float64, error) {
	payload := map[string]any{
		"expression": img.Expr(),
		"bands":      img.Bands(),
		"region":     region,
		"reducer":    "mean",
		"scale":      scale,
		"maxPixels":  maxPixels,
	}
	var out struct {
		Values map[string]float64 `json:"values"`
	}
	if err := e.post(ctx, "/v1/reduce", payload, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// SamplePixels draws up to numPixels random pixels within region.
func (e *HTTPEvaluator) SamplePixels(ctx context.Context, img *Image, region Geometry, scale, numPixels int, seed int64) ([]PointRow, error) {
	payload := map[string]any{
		"expression": img.Expr(),
		"bands":      img.Bands(),
		"region":     region,
		"scale":      scale,
		"numPixels":  numPixels,
		"seed":       seed,
		"geometries": true,
	}
	return e.postRows(ctx, "/v1/sample", payload)
}

// SampleRegions samples img at every feature.
func (e *HTTPEvaluator) SampleRegions(ctx context.Context, img *Image, points []Feature, scale int) ([]PointRow, error) {
	payload := map[string]any{
		"expression": img.Expr(),
		"bands":      img.Bands(),
		"points":     points,
		"scale":      scale,
	}
	return e.postRows(ctx, "/v1/sampleRegions", payload)
}

func (e *HTTPEvaluator) postRows(ctx context.Context, path string, payload any) ([]PointRow, error) {
	var out struct {
		Rows []struct {
			Lon   float64        `json:"lon"`
			Lat   float64        `json:"lat"`
			Props map[string]any `json:"properties"`
		} `json:"rows"`
	}
	if err := e.post(ctx, path, payload, &out); err != nil {
		return nil, err
	}
	rows := make([]PointRow, len(out.Rows))
	for i, r := range out.Rows {
		rows[i] = PointRow{Lon: r.Lon, Lat: r.Lat, Props: r.Props}
	}
	return rows, nil
}

// FetchAssetGeometry resolves a stored asset reference to its footprint.
func (e *HTTPEvaluator) FetchAssetGeometry(ctx context.Context, assetID string) (Geometry, error) {
	payload := map[string]any{"asset": assetID}
	var out struct {
		Geometry Geometry `json:"geometry"`
	}
	if err := e.post(ctx, "/v1/asset", payload, &out); err != nil {
		return Geometry{}, err
	}
	return out.Geometry, nil
}

// FetchGrid evaluates the named bands over region into a pixel window.
func (e *HTTPEvaluator) FetchGrid(ctx context.Context, img *Image, region Geometry, bands []string, width, height int) (*Grid, error) {
	payload := map[string]any{
		"expression": img.Expr(),
		"bands":      bands,
		"region":     region,
		"width":      width,
		"height":     height,
	}
	var out struct {
		Width  int          `json:"width"`
		Height int          `json:"height"`
		Bands  []string     `json:"bands"`
		Values [][]*float64 `json:"values"`
	}
	if err := e.post(ctx, "/v1/grid", payload, &out); err != nil {
		return nil, err
	}
	// JSON has no NaN; undefined pixels arrive as null
	values := make([][]float64, len(out.Values))
	for i, band := range out.Values {
		values[i] = make([]float64, len(band))
		for j, v := range band {
			if v == nil {
				values[i][j] = math.NaN()
			} else {
				values[i][j] = *v
			}
		}
	}
	return &Grid{Width: out.Width, Height: out.Height, Bands: out.Bands, Values: values}, nil
}
