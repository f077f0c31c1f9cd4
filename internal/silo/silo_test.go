package silo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcube/internal/logging"
	"cropcube/pkg/retry"
)

func TestSnap05(t *testing.T) {
	assert.InDelta(t, 149.10, Snap05(149.123), 1e-9)
	assert.InDelta(t, -35.45, Snap05(-35.456), 1e-9)
	// Snapping an already-snapped coordinate is a no-op.
	assert.InDelta(t, Snap05(149.123), Snap05(Snap05(149.123)), 1e-12)
}

func TestValidateVars(t *testing.T) {
	comment, err := ValidateVars([]string{"r", " X", "n"})
	require.NoError(t, err)
	assert.Equal(t, "RXN", comment)

	_, err = ValidateVars([]string{"R", "Q", "ZZ"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Q")
	assert.Contains(t, err.Error(), ValidCodes)
}

func TestValidateRequiresCredentialsAndDates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AreaName = "Corrigin"
	cfg.PointsPath = "p.geojson"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")

	cfg.Username = "someone@example.com"
	cfg.DateStart = "2019-13-01"
	cfg.DateEnd = "2019-12-31"
	assert.Error(t, cfg.Validate())

	cfg.DateStart = "2019-01-01"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "apirequest", cfg.Password)
}

func TestValidateRequiresASink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AreaName = "Corrigin"
	cfg.PointsPath = "p.geojson"
	cfg.Username = "someone@example.com"
	cfg.DateStart = "2019-01-01"
	cfg.DateEnd = "2019-01-31"
	cfg.MakeParquet = false
	cfg.MakeCSV = false
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output sink")
}

func writePoints(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.geojson")
	data := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[149.123,-35.456]},"properties":{"station":15590}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[117.91,-32.29]},"properties":{"station":10073}}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.AreaName = "Corrigin"
	cfg.PointsPath = writePoints(t)
	cfg.Username = "someone@example.com"
	cfg.DateStart = "2019-01-01"
	cfg.DateEnd = "2019-01-31"
	cfg.ExportRoot = t.TempDir()
	cfg.MakeParquet = false
	cfg.MakeCSV = true
	cfg.Retry = retry.Policy{MaxAttempts: 0, BaseWait: time.Millisecond}
	return cfg
}

func TestDataDrillRequestShape(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte("date,R,X\n2019-01-01,0.0,31.2\n2019-01-02,4.8,29.5\n"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	client := NewClientForURL(srv.URL, cfg.Retry)
	res, err := Run(context.Background(), client, cfg, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, "/DataDrillDataset.php", gotPath)
	assert.Equal(t, "20190101", gotQuery["start"])
	assert.Equal(t, "20190131", gotQuery["finish"])
	assert.Equal(t, "RXN", gotQuery["comment"])
	assert.Equal(t, "someone@example.com", gotQuery["username"])
	assert.Equal(t, "apirequest", gotQuery["password"])
	// 117.91 sits off-grid and snaps to the nearest 0.05 cell.
	assert.Equal(t, "117.90", gotQuery["lon"])
	assert.Equal(t, "-32.30", gotQuery["lat"])

	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 4, res.Rows)
	assert.Contains(t, res.CSVPath, "Corrigin_SILO_POINTS_datadrill_")

	data, err := os.ReadFile(res.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lat_snapped")
	assert.Contains(t, string(data), "DD_-35.45600_149.12300")
}

func TestStationModeUsesPatchedPoint(t *testing.T) {
	var gotPath string
	var stations []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		stations = append(stations, r.URL.Query().Get("station"))
		assert.Empty(t, r.URL.Query().Get("password"))
		w.Write([]byte(`{"data":[{"date":"2019-01-01","R":1.5}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Mode = ModeStation
	cfg.StationField = "station"
	cfg.Format = "json"
	client := NewClientForURL(srv.URL, cfg.Retry)

	res, err := Run(context.Background(), client, cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "/PatchedPointDataset.php", gotPath)
	assert.Equal(t, []string{"15590", "10073"}, stations)
	assert.Equal(t, 2, res.Rows)
	assert.Contains(t, res.CSVPath, "SILO_POINTS_station_")

	data, err := os.ReadFile(res.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ST_15590")
}

func TestFailedPointsAreSkipped(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "rejected", http.StatusForbidden)
			return
		}
		w.Write([]byte("date,R\n2019-01-01,2.2\n"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	client := NewClientForURL(srv.URL, cfg.Retry)
	res, err := Run(context.Background(), client, cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Rows)
}

func TestAllFailuresIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	client := NewClientForURL(srv.URL, cfg.Retry)
	_, err := Run(context.Background(), client, cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tables were downloaded")
}
