// Package preview renders a false-color quicklook of a composite as a
// georeferenced TIFF. It exists for eyeballing a run's output, not for
// analysis; failures here never abort a pipeline run.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/paulmach/orb"

	"cropcube/internal/engine"
	"cropcube/pkg/geotiff"
)

// Bands drawn into R, G and B. Vegetation shows red in this composite.
var Bands = []string{"NIR", "RED", "GREEN"}

// reflectanceMax is the stretch ceiling for surface reflectance values.
const reflectanceMax = 3000.0

// Quicklook evaluates img over region into a width-pixel raster and writes
// it to path. Height follows the region's aspect ratio. Pixels where any
// band is undefined come out fully transparent.
func Quicklook(ctx context.Context, eval engine.Evaluator, img *engine.Image, region engine.Geometry, bound orb.Bound, path string, width int) error {
	if width <= 0 {
		width = 512
	}
	spanX := bound.Max[0] - bound.Min[0]
	spanY := bound.Max[1] - bound.Min[1]
	if spanX <= 0 || spanY <= 0 {
		return fmt.Errorf("degenerate region bounds %v", bound)
	}
	height := int(math.Round(float64(width) * spanY / spanX))
	if height < 1 {
		height = 1
	}

	grid, err := eval.FetchGrid(ctx, img, region, Bands, width, height)
	if err != nil {
		return fmt.Errorf("failed to fetch preview grid: %w", err)
	}
	if len(grid.Values) != len(Bands) {
		return fmt.Errorf("preview grid has %d bands, want %d", len(grid.Values), len(Bands))
	}

	out := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := y*grid.Width + x
			r, rOK := stretch(grid.Values[0][i])
			g, gOK := stretch(grid.Values[1][i])
			b, bOK := stretch(grid.Values[2][i])
			if !rOK || !gOK || !bOK {
				continue // stays transparent
			}
			out.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}
	defer f.Close()

	tags := geotiff.WGS84Tags(bound.Min[0], bound.Max[1], spanX/float64(grid.Width), spanY/float64(grid.Height))
	if err := geotiff.Encode(f, out, tags); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

// stretch maps reflectance [0, reflectanceMax] onto [0, 255].
func stretch(v float64) (uint8, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	if v < 0 {
		v = 0
	}
	if v > reflectanceMax {
		v = reflectanceMax
	}
	return uint8(math.Round(v / reflectanceMax * 255)), true
}
