package engine

import "time"

// ImageCollection is an ordered sequence of images sharing a band schema.
// The sequence itself is materialized client-side (one catalog query per
// collection build); per-image pixel data stays deferred.
type ImageCollection struct {
	images []*Image
}

// NewImageCollection wraps a slice of images. The slice is copied.
func NewImageCollection(images []*Image) *ImageCollection {
	return &ImageCollection{images: append([]*Image(nil), images...)}
}

// Images returns the member images in order.
func (c *ImageCollection) Images() []*Image {
	return append([]*Image(nil), c.images...)
}

// Size returns the number of member images.
func (c *ImageCollection) Size() int { return len(c.images) }

// First returns the first member, or nil for an empty collection.
func (c *ImageCollection) First() *Image {
	if len(c.images) == 0 {
		return nil
	}
	return c.images[0]
}

// Map applies f to every member, preserving order.
func (c *ImageCollection) Map(f func(*Image) *Image) *ImageCollection {
	out := make([]*Image, len(c.images))
	for i, img := range c.images {
		out[i] = f(img)
	}
	return &ImageCollection{images: out}
}

// FilterTimeRange keeps images whose acquisition timestamp t satisfies
// start <= t < end.
func (c *ImageCollection) FilterTimeRange(start, end time.Time) *ImageCollection {
	var out []*Image
	for _, img := range c.images {
		ts := img.Timestamp()
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, img)
		}
	}
	return &ImageCollection{images: out}
}

// TimeBounds returns the minimum and maximum acquisition timestamps in a
// single pass. ok is false for an empty collection or one with no
// timestamped members.
func (c *ImageCollection) TimeBounds() (min, max time.Time, ok bool) {
	for _, img := range c.images {
		ts := img.Timestamp()
		if ts.IsZero() {
			continue
		}
		if !ok {
			min, max, ok = ts, ts, true
			continue
		}
		if ts.Before(min) {
			min = ts
		}
		if ts.After(max) {
			max = ts
		}
	}
	return min, max, ok
}

// Mosaic composites the collection by first-is-priority pixel selection.
func (c *ImageCollection) Mosaic() *Image {
	return Mosaic(c.images)
}
