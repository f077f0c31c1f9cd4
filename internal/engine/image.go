package engine

import (
	"sort"
	"time"
)

// Image is an immutable handle on a deferred multi-band raster. Band names
// and metadata properties are tracked client-side so that schema decisions
// (renames, cube layout) never require a round trip; pixel values live
// behind the expression graph and only exist once evaluated. Operations
// that reference a band missing from the underlying data fail at
// evaluation time, not at construction.
type Image struct {
	expr  *Expr
	bands []string
	props map[string]any
}

// SourceImage references a single asset in the remote catalog.
func SourceImage(id string, bands []string, ts time.Time) *Image {
	img := &Image{
		expr:  &Expr{Op: "load", Args: map[string]any{"id": id}},
		bands: append([]string(nil), bands...),
		props: map[string]any{"system:id": id},
	}
	if !ts.IsZero() {
		img.props["system:time_start"] = ts
	}
	return img
}

// Constant is a single-band image with the same value at every pixel.
func Constant(v float64) *Image {
	return &Image{
		expr:  &Expr{Op: "constant", Args: map[string]any{"value": v}},
		bands: []string{"constant"},
		props: map[string]any{},
	}
}

// MaskedConstant is an image whose pixels are all undefined. Used for time
// buckets that contain no observations.
func MaskedConstant(bands []string) *Image {
	return &Image{
		expr:  &Expr{Op: "masked", Args: map[string]any{"bands": append([]string(nil), bands...)}},
		bands: append([]string(nil), bands...),
		props: map[string]any{},
	}
}

func (im *Image) derive(expr *Expr, bands []string) *Image {
	props := make(map[string]any, len(im.props))
	for k, v := range im.props {
		props[k] = v
	}
	return &Image{expr: expr, bands: bands, props: props}
}

// Expr exposes the underlying expression graph for evaluation.
func (im *Image) Expr() *Expr { return im.expr }

// Bands returns the band names in order.
func (im *Image) Bands() []string {
	return append([]string(nil), im.bands...)
}

// Get returns a metadata property, or nil when absent.
func (im *Image) Get(key string) any { return im.props[key] }

// GetString returns a string property, or "" when absent or non-string.
func (im *Image) GetString(key string) string {
	s, _ := im.props[key].(string)
	return s
}

// Timestamp returns the acquisition time, or the zero time when unknown.
func (im *Image) Timestamp() time.Time {
	t, _ := im.props["system:time_start"].(time.Time)
	return t
}

// Set returns a copy of the image with the given properties merged in.
func (im *Image) Set(props map[string]any) *Image {
	out := im.derive(im.expr, im.bands)
	for k, v := range props {
		out.props[k] = v
	}
	return out
}

// Select keeps only the named bands, in the requested order. Unknown names
// are carried through untouched; the mismatch surfaces on evaluation.
func (im *Image) Select(bands ...string) *Image {
	expr := unary("select", im.expr, map[string]any{"bands": append([]string(nil), bands...)})
	return im.derive(expr, append([]string(nil), bands...))
}

// SelectAs selects src bands and renames them to dst in one step.
func (im *Image) SelectAs(src, dst []string) *Image {
	expr := unary("select", im.expr, map[string]any{
		"bands":   append([]string(nil), src...),
		"renamed": append([]string(nil), dst...),
	})
	return im.derive(expr, append([]string(nil), dst...))
}

// Rename replaces every band name. The number of names must match the
// current band count.
func (im *Image) Rename(names ...string) *Image {
	expr := unary("rename", im.expr, map[string]any{"bands": append([]string(nil), names...)})
	return im.derive(expr, append([]string(nil), names...))
}

// AddBands appends every band of other to the image.
func (im *Image) AddBands(other *Image) *Image {
	expr := nary("addBands", []*Expr{im.expr, other.expr}, nil)
	bands := append(im.Bands(), other.bands...)
	return im.derive(expr, bands)
}

// UpdateMask marks pixels undefined wherever mask is zero or undefined.
func (im *Image) UpdateMask(mask *Image) *Image {
	expr := nary("updateMask", []*Expr{im.expr, mask.expr}, nil)
	return im.derive(expr, im.Bands())
}

// Resample sets the resampling method used when the image is pulled at a
// scale other than its native one.
func (im *Image) Resample(method string) *Image {
	expr := unary("resample", im.expr, map[string]any{"method": method})
	return im.derive(expr, im.Bands())
}

// NormalizedDifference computes (a-b)/(a+b) over the two named bands,
// producing a single band named "nd".
func (im *Image) NormalizedDifference(a, b string) *Image {
	expr := unary("normalizedDifference", im.expr, map[string]any{"bands": []string{a, b}})
	return im.derive(expr, []string{"nd"})
}

// Expression evaluates an arithmetic formula over named single-band inputs,
// producing one band named "expression".
func (im *Image) Expression(formula string, vars map[string]*Image) *Image {
	args := map[string]any{"formula": formula}
	inputs := []*Expr{im.expr}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	// deterministic graph layout
	sort.Strings(names)
	for _, name := range names {
		inputs = append(inputs, vars[name].expr)
	}
	args["vars"] = names
	expr := nary("expression", inputs, args)
	return im.derive(expr, []string{"expression"})
}

// Eq compares every pixel against v, yielding 1 where equal and 0 elsewhere.
func (im *Image) Eq(v float64) *Image {
	expr := unary("eq", im.expr, map[string]any{"value": v})
	return im.derive(expr, im.Bands())
}

// BitwiseAnd masks every pixel with the integer v.
func (im *Image) BitwiseAnd(v int) *Image {
	expr := unary("bitwiseAnd", im.expr, map[string]any{"value": v})
	return im.derive(expr, im.Bands())
}

// And is the pixelwise logical conjunction of two mask images.
func (im *Image) And(other *Image) *Image {
	expr := nary("and", []*Expr{im.expr, other.expr}, nil)
	return im.derive(expr, im.Bands())
}

// Where replaces pixels with value wherever test is non-zero.
func (im *Image) Where(test, value *Image) *Image {
	expr := nary("where", []*Expr{im.expr, test.expr, value.expr}, nil)
	return im.derive(expr, im.Bands())
}

// Divide divides pixelwise by other.
func (im *Image) Divide(other *Image) *Image {
	expr := nary("divide", []*Expr{im.expr, other.expr}, nil)
	return im.derive(expr, im.Bands())
}

// SubtractConst subtracts v from every pixel.
func (im *Image) SubtractConst(v float64) *Image {
	expr := unary("subtract", im.expr, map[string]any{"value": v})
	return im.derive(expr, im.Bands())
}

// Mosaic composites images by first-is-priority pixel selection: for each
// pixel the first defined value in input order wins. The band schema is
// taken from the first image; callers composite homogeneous inputs.
func Mosaic(images []*Image) *Image {
	if len(images) == 0 {
		return MaskedConstant(nil)
	}
	exprs := make([]*Expr, len(images))
	for i, img := range images {
		exprs[i] = img.expr
	}
	out := images[0].derive(nary("mosaic", exprs, nil), images[0].Bands())
	// mosaic output carries no per-scene metadata
	out.props = map[string]any{}
	return out
}
