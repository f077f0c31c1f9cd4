// Package timeseries turns a harmonized collection into a per-image index
// time series and reduces it to one composite per calendar month.
package timeseries

import (
	"fmt"

	"cropcube/internal/dates"
	"cropcube/internal/engine"
	"cropcube/internal/indices"
)

// Compose stacks the requested index bands onto every image and stamps a
// YYYY-MM-DD date property derived from the acquisition timestamp. Output
// order is whatever the input order was; callers sort when order matters.
func Compose(col *engine.ImageCollection, names []string) *engine.ImageCollection {
	return col.Map(func(img *engine.Image) *engine.Image {
		out := indices.Apply(img, names)
		return out.Set(map[string]any{"date": dates.FormatISO8601(img.Timestamp())})
	})
}

// MonthlyMosaics buckets the series into calendar months spanning the
// observed date range, inclusive of both endpoints, and reduces each bucket
// to a first-is-priority mosaic stamped with a YYYY-MM date property.
// A month with no observations yields a fully-masked composite carrying the
// series band schema; it is not an error.
func MonthlyMosaics(series *engine.ImageCollection) (*engine.ImageCollection, error) {
	first, last, ok := series.TimeBounds()
	if !ok {
		return nil, fmt.Errorf("time series has no timestamped images")
	}
	schema := series.First().Bands()

	n := dates.MonthsBetween(first, last)
	months := make([]*engine.Image, 0, n+1)
	cursor := dates.FloorMonth(first)
	for i := 0; i <= n; i++ {
		next := cursor.AddDate(0, 1, 0)
		bucket := series.FilterTimeRange(cursor, next)

		var composite *engine.Image
		if bucket.Size() == 0 {
			composite = engine.MaskedConstant(schema)
		} else {
			composite = bucket.Mosaic()
		}
		months = append(months, composite.Set(map[string]any{"date": dates.FormatMonth(cursor)}))
		cursor = next
	}
	return engine.NewImageCollection(months), nil
}
