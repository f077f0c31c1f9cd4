// Package sentinel builds harmonized Sentinel-2 surface reflectance
// collections: quality-bit cloud masking and canonical band renaming.
package sentinel

import (
	"context"
	"fmt"
	"time"

	"cropcube/internal/engine"
)

// QA60 bit positions for opaque cloud and cirrus flags.
const (
	cloudBit  = 10
	cirrusBit = 11
)

// qaBand is the 16-bit quality flag band.
const qaBand = "QA60"

var (
	srcBands = []string{"B2", "B3", "B4", "B8", "B5", "B6", "B7", "B8A", "B11", "B12"}
	dstBands = []string{"BLUE", "GREEN", "RED", "NIR", "RE1", "RE2", "RE3", "RE4", "SWIR1", "SWIR2"}
)

// CanonicalBands returns the harmonized band roles in order.
func CanonicalBands() []string {
	return append([]string(nil), dstBands...)
}

// MaskClouds derives a validity mask from the QA60 cloud and cirrus bits.
// A pixel is valid only when both bits are zero; invalid pixels become
// undefined, not zero.
func MaskClouds(img *engine.Image) *engine.Image {
	qa := img.Select(qaBand)
	mask := qa.BitwiseAnd(1 << cloudBit).Eq(0).And(qa.BitwiseAnd(1 << cirrusBit).Eq(0))
	return img.UpdateMask(mask)
}

// SelectBands renames the ten source band identifiers to canonical roles
// and fixes bilinear resampling at selection time.
func SelectBands(img *engine.Image) *engine.Image {
	return img.SelectAs(srcBands, dstBands).Resample("bilinear")
}

// BuildCollection queries the catalog for scenes of sourceID intersecting
// region within [start, end] (closed interval on date strings), then masks
// and harmonizes every member. The returned collection's members all carry
// the canonical band set.
func BuildCollection(ctx context.Context, eval engine.Evaluator, sourceID string, start, end time.Time, region engine.Geometry) (*engine.ImageCollection, error) {
	scenes, err := eval.ListScenes(ctx, engine.SceneQuery{
		SourceID: sourceID,
		Start:    start,
		End:      end,
		Region:   region,
	})
	if err != nil {
		return nil, fmt.Errorf("scene query for %s failed: %w", sourceID, err)
	}
	images := make([]*engine.Image, len(scenes))
	for i, s := range scenes {
		images[i] = engine.SourceImage(s.ID, s.Bands, s.Timestamp)
	}
	col := engine.NewImageCollection(images)
	return col.Map(func(img *engine.Image) *engine.Image {
		return SelectBands(MaskClouds(img))
	}), nil
}
