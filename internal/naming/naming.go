package naming

import (
	"fmt"
	"regexp"
	"time"
)

var stemSanitizer = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

// MakeName creates a standardized artifact base name.
// Format: {area}_{year}_{stem}, with the stem sanitized for filesystem use.
func MakeName(area string, year int, stem string) string {
	stem = stemSanitizer.ReplaceAllString(stem, "_")
	return fmt.Sprintf("%s_%d_%s", area, year, stem)
}

// Stamp returns a UTC timestamp suitable for embedding in filenames.
// Format: 20060102T150405Z.
func Stamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// SamplerName creates a timestamped base name for sampler output tables.
// Format: {area}_{tag}_{stamp}.
func SamplerName(area, tag string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s", area, stemSanitizer.ReplaceAllString(tag, "_"), Stamp(t))
}
