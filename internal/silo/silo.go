// Package silo downloads daily climate records from the Queensland
// government's SILO API, one request per point (gridded "data drill") or per
// weather station (patched point). Individual point failures are logged and
// skipped; the run fails only when nothing was fetched at all.
package silo

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cropcube/internal/config"
	"cropcube/internal/dates"
	"cropcube/internal/engine"
	"cropcube/internal/naming"
	"cropcube/internal/roi"
	"cropcube/internal/table"
	"cropcube/pkg/retry"
)

// BaseURL is the SILO CGI endpoint root.
const BaseURL = "https://www.longpaddock.qld.gov.au/cgi-bin/silo"

// ValidCodes are the single-letter climate variable codes the API accepts.
const ValidCodes = "RXNVDESCLJHGFTAPWM"

// Run modes.
const (
	ModeDataDrill = "datadrill"
	ModeStation   = "station"
)

// Snap05 snaps a coordinate to the 0.05 degree SILO grid.
func Snap05(x float64) float64 {
	return math.Round(x/0.05) * 0.05
}

// snapped returns the grid coordinate exactly as the API sees it: snapped,
// then rounded to two decimals on the wire.
func snapped(x float64) (string, float64) {
	s := fmt.Sprintf("%.2f", Snap05(x))
	f, _ := strconv.ParseFloat(s, 64)
	return s, f
}

// ValidateVars uppercases the requested variable codes, rejects unknown
// ones and returns the concatenated comment string the API expects.
func ValidateVars(vars []string) (string, error) {
	var bad []string
	var b strings.Builder
	for _, v := range vars {
		c := strings.ToUpper(strings.TrimSpace(v))
		if len(c) != 1 || !strings.Contains(ValidCodes, c) {
			bad = append(bad, v)
			continue
		}
		b.WriteString(c)
	}
	if len(bad) > 0 {
		return "", fmt.Errorf("unknown SILO variable codes %v; valid codes: %s", bad, ValidCodes)
	}
	return b.String(), nil
}

// Config drives one SILO download run.
type Config struct {
	AreaName     string
	Mode         string
	PointsPath   string
	StationField string
	Variables    []string
	DateStart    string
	DateEnd      string
	Username     string
	Password     string
	Format       string // "csv" or "json"
	ExportRoot   string

	MakeParquet bool
	MakeCSV     bool

	Retry retry.Policy
}

// DefaultConfig returns a Config with the standard knobs set.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeDataDrill,
		Variables:   []string{"R", "X", "N"},
		Password:    "apirequest",
		Format:      "csv",
		ExportRoot:  "Outputs",
		MakeParquet: true,
		Retry:       retry.DefaultPolicy(),
	}
}

// Validate checks credentials, mode, variables and the date range.
func (c *Config) Validate() error {
	if c.AreaName == "" {
		return fmt.Errorf("area name must be provided")
	}
	if c.Username == "" {
		return fmt.Errorf("username (your email) is required by the SILO API")
	}
	if c.Mode != ModeDataDrill && c.Mode != ModeStation {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDataDrill, ModeStation, c.Mode)
	}
	if c.PointsPath == "" {
		return fmt.Errorf("points path must be provided")
	}
	if c.Mode == ModeStation && c.StationField == "" {
		return fmt.Errorf("station field is required for mode %q", ModeStation)
	}
	if c.Format != "csv" && c.Format != "json" {
		return fmt.Errorf("format must be csv or json, got %q", c.Format)
	}
	if !c.MakeParquet && !c.MakeCSV {
		return fmt.Errorf("no output sink enabled: set make_parquet and/or make_csv")
	}
	if _, err := ValidateVars(c.Variables); err != nil {
		return err
	}
	start, err := dates.ParseISO8601(c.DateStart)
	if err != nil {
		return fmt.Errorf("date start: %w", err)
	}
	end, err := dates.ParseISO8601(c.DateEnd)
	if err != nil {
		return fmt.Errorf("date end: %w", err)
	}
	if start.After(end) {
		return fmt.Errorf("date start %s must be <= date end %s", c.DateStart, c.DateEnd)
	}
	if c.Password == "" {
		c.Password = "apirequest"
	}
	if c.Retry.MaxAttempts == 0 && c.Retry.BaseWait == 0 {
		c.Retry = retry.DefaultPolicy()
	}
	return nil
}

// Client fetches from the SILO API with retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a client against the public endpoint.
func NewClient(policy retry.Policy) *Client {
	return &Client{
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		policy: policy,
	}
}

// NewClientForURL creates a client against a non-default endpoint.
func NewClientForURL(baseURL string, policy retry.Policy) *Client {
	c := NewClient(policy)
	c.baseURL = baseURL
	return c
}

func (c *Client) get(ctx context.Context, page string, params url.Values) ([]byte, error) {
	var body []byte
	err := c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+page+"?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request to %s failed: %w", page, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &engine.RemoteError{Status: resp.StatusCode, Message: string(data)}
		}
		body = data
		return nil
	})
	return body, err
}

// point is one unit of work: a grid cell or a station.
type point struct {
	lon, lat float64
	station  int
	tag      string
}

func loadWork(cfg Config) ([]point, error) {
	feats, err := roi.LoadPoints(cfg.PointsPath)
	if err != nil {
		return nil, err
	}
	work := make([]point, 0, len(feats))
	for _, f := range feats {
		if cfg.Mode == ModeStation {
			id, err := stationID(f.Props[cfg.StationField])
			if err != nil {
				return nil, fmt.Errorf("feature at (%g,%g): %w", f.Lon, f.Lat, err)
			}
			work = append(work, point{station: id, tag: fmt.Sprintf("ST_%d", id)})
			continue
		}
		work = append(work, point{
			lon: f.Lon,
			lat: f.Lat,
			tag: fmt.Sprintf("DD_%.5f_%.5f", f.Lat, f.Lon),
		})
	}
	return work, nil
}

func stationID(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case int:
		return x, nil
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("invalid station id %q", x)
		}
		return id, nil
	}
	return 0, fmt.Errorf("missing or invalid station id %v", v)
}

// params builds the query for one point. Dates go over the wire without
// separators; data-drill coordinates are snapped to the grid first.
func (cfg Config) params(p point, comment string) (string, url.Values) {
	start := strings.ReplaceAll(cfg.DateStart, "-", "")
	finish := strings.ReplaceAll(cfg.DateEnd, "-", "")
	v := url.Values{}
	v.Set("start", start)
	v.Set("finish", finish)
	v.Set("format", cfg.Format)
	v.Set("comment", comment)
	v.Set("username", cfg.Username)
	if cfg.Mode == ModeStation {
		v.Set("station", strconv.Itoa(p.station))
		return "PatchedPointDataset.php", v
	}
	lonStr, _ := snapped(p.lon)
	latStr, _ := snapped(p.lat)
	v.Set("lon", lonStr)
	v.Set("lat", latStr)
	v.Set("password", cfg.Password)
	return "DataDrillDataset.php", v
}

func parseBody(format string, body []byte) ([]map[string]any, error) {
	if format == "json" {
		return parseJSON(body)
	}
	return parseCSV(body)
}

func parseCSV(body []byte) ([]map[string]any, error) {
	r := csv.NewReader(strings.NewReader(string(body)))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV response: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV response has no data rows")
	}
	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, h := range header {
			if i >= len(rec) {
				break
			}
			row[h] = cellValue(rec[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cellValue keeps numeric-looking cells numeric so the parquet schema does
// not degrade to strings.
func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func parseJSON(body []byte) ([]map[string]any, error) {
	var wrapper struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Data != nil {
		return wrapper.Data, nil
	}
	var bare []map[string]any
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return bare, nil
}

// Result summarizes a download run.
type Result struct {
	ParquetPath string
	CSVPath     string
	Rows        int
	Fetched     int
	Skipped     int
}

// Run fetches every point's record set and concatenates them into one
// table tagged with its source point.
func Run(ctx context.Context, client *Client, cfg Config, logger *logrus.Logger) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	logger.Infof("SILO points | mode=%s | vars=%v | %s..%s", cfg.Mode, cfg.Variables, cfg.DateStart, cfg.DateEnd)

	comment, err := ValidateVars(cfg.Variables)
	if err != nil {
		return Result{}, err
	}
	work, err := loadWork(cfg)
	if err != nil {
		return Result{}, err
	}

	tb := table.New()
	res := Result{}
	for _, p := range work {
		page, params := cfg.params(p, comment)
		body, err := client.get(ctx, page, params)
		if err != nil {
			logger.Errorf("[fail] %s: %v", p.tag, err)
			res.Skipped++
			continue
		}
		rows, err := parseBody(cfg.Format, body)
		if err != nil {
			logger.Errorf("[fail] %s: %v", p.tag, err)
			res.Skipped++
			continue
		}
		for _, row := range rows {
			if cfg.Mode == ModeStation {
				row["station"] = p.station
			} else {
				_, latSnap := snapped(p.lat)
				_, lonSnap := snapped(p.lon)
				row["lat_snapped"] = latSnap
				row["lon_snapped"] = lonSnap
			}
			row["source_tag"] = p.tag
			tb.Append(row)
		}
		res.Fetched++
		logger.Infof("[ok] %s rows=%d", p.tag, len(rows))
	}

	if res.Fetched == 0 {
		return res, fmt.Errorf("no tables were downloaded; check API credentials and parameters")
	}

	dir, err := config.SamplerDir(cfg.ExportRoot, cfg.AreaName, "SILO")
	if err != nil {
		return res, err
	}
	base := naming.SamplerName(cfg.AreaName, "SILO_POINTS_"+cfg.Mode, time.Now())

	res.Rows = tb.Len()
	if cfg.MakeParquet {
		res.ParquetPath = filepath.Join(dir, base+".parquet")
		if err := tb.WriteParquet(res.ParquetPath); err != nil {
			return res, err
		}
	}
	if cfg.MakeCSV {
		res.CSVPath = filepath.Join(dir, base+".csv")
		if err := tb.WriteCSV(res.CSVPath); err != nil {
			return res, err
		}
	}
	logger.Infof("Saved: %s / %s [%d rows]", res.ParquetPath, res.CSVPath, res.Rows)
	return res, nil
}
