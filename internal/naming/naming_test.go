package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMakeNameSanitizesStem(t *testing.T) {
	assert.Equal(t, "Corrigin_2018_cube_stats", MakeName("Corrigin", 2018, "cube_stats"))
	assert.Equal(t, "Corrigin_2018_a_b_c", MakeName("Corrigin", 2018, "a b/c"))
	assert.Equal(t, "Corrigin_2018_cube-v2", MakeName("Corrigin", 2018, "cube-v2"))
}

func TestStampIsUTC(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)
	ts := time.Date(2019, 7, 1, 9, 30, 0, 0, loc)
	assert.Equal(t, "20190630T233000Z", Stamp(ts))
}

func TestSamplerName(t *testing.T) {
	ts := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Corrigin_SLGA_POINTS_EV_20190701T000000Z", SamplerName("Corrigin", "SLGA_POINTS_EV", ts))
}
