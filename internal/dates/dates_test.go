package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISO8601(t *testing.T) {
	got, err := ParseISO8601("2018-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 3, 5, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseISO8601("")
	assert.Error(t, err)

	_, err = ParseISO8601("05/03/2018")
	assert.Error(t, err)
}

func TestFloorMonth(t *testing.T) {
	ts := time.Date(2018, 3, 17, 10, 42, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), FloorMonth(ts))
}

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same month", time.Date(2018, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2018, 1, 29, 0, 0, 0, 0, time.UTC), 0},
		{"adjacent days across months", time.Date(2018, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC), 1},
		{"full year", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC), 11},
		{"across years", time.Date(2018, 11, 15, 0, 0, 0, 0, time.UTC), time.Date(2019, 2, 2, 0, 0, 0, 0, time.UTC), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MonthsBetween(tc.a, tc.b))
		})
	}
}

func TestFormatMonth(t *testing.T) {
	assert.Equal(t, "2018-03", FormatMonth(time.Date(2018, 3, 17, 0, 0, 0, 0, time.UTC)))
}
