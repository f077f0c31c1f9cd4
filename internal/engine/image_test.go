package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *Image {
	return SourceImage("S2/abc", []string{"BLUE", "GREEN", "RED", "NIR"}, time.Date(2018, 3, 17, 0, 42, 0, 0, time.UTC))
}

func TestImagesAreImmutable(t *testing.T) {
	img := testImage()
	renamed := img.Rename("B", "G", "R", "N")
	assert.Equal(t, []string{"BLUE", "GREEN", "RED", "NIR"}, img.Bands())
	assert.Equal(t, []string{"B", "G", "R", "N"}, renamed.Bands())

	withProp := img.Set(map[string]any{"date": "2018-03-17"})
	assert.Nil(t, img.Get("date"))
	assert.Equal(t, "2018-03-17", withProp.GetString("date"))
}

func TestSelectAsTracksRenamedBands(t *testing.T) {
	img := testImage()
	out := img.SelectAs([]string{"RED", "NIR"}, []string{"R", "N"})
	assert.Equal(t, []string{"R", "N"}, out.Bands())
}

func TestAddBandsAppendsSchema(t *testing.T) {
	img := testImage()
	nd := img.NormalizedDifference("NIR", "RED").Rename("NDVI")
	out := img.AddBands(nd)
	assert.Equal(t, []string{"BLUE", "GREEN", "RED", "NIR", "NDVI"}, out.Bands())
}

func TestConstructionIsPure(t *testing.T) {
	// selecting a band that does not exist must not fail at build time;
	// the contract violation belongs to evaluation
	img := testImage()
	out := img.Select("SWIR1")
	assert.Equal(t, []string{"SWIR1"}, out.Bands())
	assert.NotNil(t, out.Expr())
}

func TestMosaicKeepsFirstSchemaAndDropsSceneProps(t *testing.T) {
	a := testImage().Set(map[string]any{"date": "2018-03-17"})
	b := testImage()
	m := Mosaic([]*Image{a, b})
	assert.Equal(t, a.Bands(), m.Bands())
	assert.Nil(t, m.Get("date"))
}

func TestMaskedConstantCarriesBands(t *testing.T) {
	m := MaskedConstant([]string{"NDVI", "EVI"})
	assert.Equal(t, []string{"NDVI", "EVI"}, m.Bands())
	assert.Equal(t, "masked", m.Expr().Op)
}

func TestCollectionTimeBoundsSinglePass(t *testing.T) {
	mk := func(ts time.Time) *Image { return SourceImage("x", []string{"RED"}, ts) }
	col := NewImageCollection([]*Image{
		mk(time.Date(2018, 5, 2, 0, 0, 0, 0, time.UTC)),
		mk(time.Date(2018, 1, 9, 0, 0, 0, 0, time.UTC)),
		mk(time.Date(2018, 9, 30, 0, 0, 0, 0, time.UTC)),
	})
	min, max, ok := col.TimeBounds()
	require.True(t, ok)
	assert.Equal(t, time.Date(2018, 1, 9, 0, 0, 0, 0, time.UTC), min)
	assert.Equal(t, time.Date(2018, 9, 30, 0, 0, 0, 0, time.UTC), max)

	_, _, ok = NewImageCollection(nil).TimeBounds()
	assert.False(t, ok)
}

func TestFilterTimeRangeHalfOpen(t *testing.T) {
	mk := func(ts time.Time) *Image { return SourceImage("x", []string{"RED"}, ts) }
	start := time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	col := NewImageCollection([]*Image{
		mk(start),                  // included
		mk(end),                    // excluded
		mk(start.AddDate(0, 0, 5)), // included
	})
	assert.Equal(t, 2, col.FilterTimeRange(start, end).Size())
}
