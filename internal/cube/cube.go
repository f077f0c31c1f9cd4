// Package cube flattens a monthly composite series into one wide image with
// date-suffixed bands.
package cube

import (
	"fmt"

	"cropcube/internal/engine"
)

// renameWithDate appends _<date property> to every band name.
func renameWithDate(img *engine.Image) *engine.Image {
	d := img.GetString("date")
	old := img.Bands()
	renamed := make([]string, len(old))
	for i, b := range old {
		renamed[i] = b + "_" + d
	}
	return img.Rename(renamed...)
}

// Assemble concatenates the monthly composites into a single wide image.
// Band names become <band>_<YYYY-MM> and band order follows the input
// sequence as a strict left-fold: the first composite's bands come first,
// each subsequent composite's bands are appended in turn.
//
// At least one time bucket is required; an empty sequence is a
// configuration/data error, never a silent zero-band image.
func Assemble(monthly *engine.ImageCollection) (*engine.Image, error) {
	if monthly.Size() == 0 {
		return nil, fmt.Errorf("cube assembly requires at least one monthly composite")
	}
	images := monthly.Images()
	out := renameWithDate(images[0])
	for _, img := range images[1:] {
		out = out.AddBands(renameWithDate(img))
	}
	return out, nil
}
