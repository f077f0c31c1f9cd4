package geotiff

// WGS84Tags builds the georeferencing tags for a north-up raster in
// geographic coordinates (EPSG:4326). The tiepoint anchors pixel (0,0) to
// the north-west corner; pixel scales are in degrees.
func WGS84Tags(west, north, pixelWidth, pixelHeight float64) map[uint16]interface{} {
	if pixelHeight < 0 {
		pixelHeight = -pixelHeight
	}
	return map[uint16]interface{}{
		TagType_GeoKeyDirectoryTag: []uint16{
			1, 1, 0, 3,
			1024, 0, 1, 2, // GTModelTypeGeoKey: Geographic
			1025, 0, 1, 1, // GTRasterTypeGeoKey: PixelIsArea
			2048, 0, 1, 4326, // GeographicTypeGeoKey: WGS 84
		},
		TagType_ModelPixelScaleTag: []float64{pixelWidth, pixelHeight, 0.0},
		TagType_ModelTiepointTag:   []float64{0.0, 0.0, 0.0, west, north, 0.0},
	}
}
