// Package indices derives scalar vegetation/water/soil bands from a
// harmonized multi-band image. Every function assumes the canonical band
// roles (BLUE, GREEN, RED, NIR, RE1..RE4, SWIR1, SWIR2) exist on the input.
package indices

import (
	"strings"

	"cropcube/internal/engine"
)

// epsilon replaces exact-zero denominators so ratio indices stay finite.
const epsilon = 1e-6

// IndexFunc maps a canonical-role image to one new single-band image named
// after the index.
type IndexFunc func(*engine.Image) *engine.Image

// Funcs is the index registry, keyed by canonical (upper-case) name.
var Funcs = map[string]IndexFunc{
	"NDVI": func(i *engine.Image) *engine.Image {
		return i.NormalizedDifference("NIR", "RED").Rename("NDVI")
	},
	"EVI": func(i *engine.Image) *engine.Image {
		return i.Expression(
			"2.5*((NIR-RED)/(NIR+6*RED-7.5*BLUE+1))",
			map[string]*engine.Image{"NIR": i.Select("NIR"), "RED": i.Select("RED"), "BLUE": i.Select("BLUE")},
		).Rename("EVI")
	},
	// McFeeters
	"NDWI": func(i *engine.Image) *engine.Image {
		return i.NormalizedDifference("GREEN", "NIR").Rename("NDWI")
	},
	"EVI2": func(i *engine.Image) *engine.Image {
		return i.Expression(
			"2.5*((NIR-RED)/(NIR+2.4*RED+1))",
			map[string]*engine.Image{"NIR": i.Select("NIR"), "RED": i.Select("RED")},
		).Rename("EVI2")
	},
	"GNDVI": func(i *engine.Image) *engine.Image {
		return i.NormalizedDifference("NIR", "GREEN").Rename("GNDVI")
	},
	"GCI": func(i *engine.Image) *engine.Image {
		return safeRatio(i.Select("NIR"), i.Select("GREEN")).SubtractConst(1).Rename("GCI")
	},
	"SAVI": func(i *engine.Image) *engine.Image {
		return i.Expression(
			"((NIR-RED)/(NIR+RED+0.5))*(1+0.5)",
			map[string]*engine.Image{"NIR": i.Select("NIR"), "RED": i.Select("RED")},
		).Rename("SAVI")
	},
	"MSAVI2": func(i *engine.Image) *engine.Image {
		return i.Expression(
			"(2*NIR + 1 - sqrt((2*NIR + 1)^2 - 8*(NIR - RED)))/2",
			map[string]*engine.Image{"NIR": i.Select("NIR"), "RED": i.Select("RED")},
		).Rename("MSAVI2")
	},
	"WDRVI": func(i *engine.Image) *engine.Image {
		return i.Expression(
			"((0.1*NIR - RED)/(0.1*NIR + RED))",
			map[string]*engine.Image{"NIR": i.Select("NIR"), "RED": i.Select("RED")},
		).Rename("WDRVI")
	},
	"NDRE": func(i *engine.Image) *engine.Image {
		return i.NormalizedDifference("NIR", "RE4").Rename("NDRE")
	},
	"CIRE": func(i *engine.Image) *engine.Image {
		return safeRatio(i.Select("NIR"), i.Select("RE4")).SubtractConst(1).Rename("CIre")
	},
	"NDMI": func(i *engine.Image) *engine.Image {
		return i.NormalizedDifference("NIR", "SWIR1").Rename("NDMI")
	},
	"NBR": func(i *engine.Image) *engine.Image {
		return i.NormalizedDifference("NIR", "SWIR2").Rename("NBR")
	},
	"MNDWI": func(i *engine.Image) *engine.Image {
		return i.NormalizedDifference("GREEN", "SWIR1").Rename("MNDWI")
	},
}

// requires20m lists indices built on the 20 m red-edge/SWIR bands. The flag
// they set is attached for downstream export-scale decisions.
var requires20m = map[string]bool{
	"NDRE":  true,
	"CIRE":  true,
	"NDMI":  true,
	"NBR":   true,
	"MNDWI": true,
}

// safeRatio divides num by den with exact-zero denominators replaced by a
// small positive epsilon, keeping the result finite and close to the true
// ratio elsewhere.
func safeRatio(num, den *engine.Image) *engine.Image {
	denSafe := den.Where(den.Eq(0), engine.Constant(epsilon))
	return num.Divide(denSafe)
}

// Apply stacks the requested index bands onto img. Names are matched
// case-insensitively; unknown names are skipped without error. The
// has_20m_indices property records whether any requested index needs 20 m
// source bands.
func Apply(img *engine.Image, names []string) *engine.Image {
	out := img
	has20m := false
	for _, raw := range names {
		n := strings.ToUpper(strings.TrimSpace(raw))
		if n == "" {
			continue
		}
		if requires20m[n] {
			has20m = true
		}
		fn, ok := Funcs[n]
		if !ok {
			continue
		}
		out = out.AddBands(fn(img))
	}
	return out.Set(map[string]any{"has_20m_indices": has20m})
}

// Supported reports whether name resolves to a registered index.
func Supported(name string) bool {
	_, ok := Funcs[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}
