package sof

import (
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
)

var registerOnce sync.Once

// COGSampler reads cloud-optimized GeoTIFFs over HTTP through GDAL's
// /vsicurl/ virtual filesystem. Points are given in WGS84 and reprojected
// into the raster's reference system before lookup.
type COGSampler struct {
	// CookieFile, when set, is handed to GDAL for authenticated endpoints.
	CookieFile string
}

func (s *COGSampler) openOptions() []godal.OpenOption {
	opts := []godal.OpenOption{
		godal.ConfigOption("GDAL_DISABLE_READDIR_ON_OPEN=EMPTY_DIR"),
		godal.ConfigOption("CPL_VSIL_CURL_USE_HEAD=NO"),
		godal.ConfigOption("CPL_VSIL_CURL_ALLOWED_EXTENSIONS=.tif,.ovr,.tif.ovr"),
	}
	if s.CookieFile != "" {
		opts = append(opts,
			godal.ConfigOption("GDAL_HTTP_COOKIEFILE="+s.CookieFile),
			godal.ConfigOption("GDAL_HTTP_COOKIEJAR="+s.CookieFile),
			godal.ConfigOption("GDAL_HTTP_USERAGENT=cropcube-sof/1.0"),
		)
	}
	return opts
}

// SampleAtPoints opens the raster once and reads band 1 at every point.
// Nodata, masked and out-of-extent pixels come back as nil.
func (s *COGSampler) SampleAtPoints(url string, lons, lats []float64) ([]*float64, error) {
	registerOnce.Do(godal.RegisterAll)

	ds, err := godal.Open("/vsicurl/"+url, s.openOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", url, err)
	}
	defer ds.Close()

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to get GeoTransform: %w", err)
	}
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return nil, fmt.Errorf("raster %s has a degenerate geotransform", url)
	}

	xs := make([]float64, len(lons))
	ys := make([]float64, len(lats))
	copy(xs, lons)
	copy(ys, lats)

	srcSR, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, fmt.Errorf("failed to build WGS84 reference: %w", err)
	}
	defer srcSR.Close()
	dstSR := ds.SpatialRef()
	defer dstSR.Close()
	tr, err := godal.NewTransform(srcSR, dstSR)
	if err != nil {
		return nil, fmt.Errorf("failed to build coordinate transform: %w", err)
	}
	defer tr.Close()
	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return nil, fmt.Errorf("transform error: %w", err)
	}

	band := ds.Bands()[0]
	nodata, hasNodata := band.NoData()
	st := ds.Structure()

	vals := make([]*float64, len(lons))
	buf := make([]float64, 1)
	for i := range lons {
		px := int(math.Floor((gt[5]*(xs[i]-gt[0]) - gt[2]*(ys[i]-gt[3])) / det))
		py := int(math.Floor((gt[1]*(ys[i]-gt[3]) - gt[4]*(xs[i]-gt[0])) / det))
		if px < 0 || py < 0 || px >= st.SizeX || py >= st.SizeY {
			continue
		}
		if err := band.Read(px, py, buf, 1, 1); err != nil {
			return nil, fmt.Errorf("failed to read pixel (%d,%d): %w", px, py, err)
		}
		v := buf[0]
		if math.IsNaN(v) || (hasNodata && v == nodata) {
			continue
		}
		vals[i] = &v
	}
	return vals, nil
}
