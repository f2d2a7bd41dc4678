package tile

import "math"

// OriginShift is half the extent of the Web-Mercator plane in meters.
const OriginShift = 20037508.342789244 // 2 * pi * 6378137 / 2

// Project converts a WGS84 coordinate to fractional Web-Mercator tile
// coordinates at the given zoom level. X grows east from the
// antimeridian, Y grows south from the north edge of the projection
// square; the integer parts are the XYZ tile indices. Latitudes
// beyond the projection square are clamped, so the result is always
// finite.
func Project(ll LatLon, zoom int) (x, y float64) {
	scale := float64(uint64(1) << uint(zoom))

	siny := math.Sin(ll.Lat * math.Pi / 180)
	siny = math.Min(math.Max(siny, -0.9999), 0.9999)

	x = scale * (0.5 + ll.Lon/360)
	y = scale * (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi))
	return x, y
}

// Unproject is the inverse of Project.
func Unproject(x, y float64, zoom int) LatLon {
	scale := float64(uint64(1) << uint(zoom))

	lon := 360*x/scale - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/scale)))
	return LatLon{Lat: latRad * 180 / math.Pi, Lon: lon}
}

// ProjectMeters converts a WGS84 coordinate to XY meters in Spherical
// Mercator (EPSG:900913/3857).
func ProjectMeters(ll LatLon) (x, y float64) {
	x = ll.Lon * OriginShift / 180
	y = math.Log(math.Tan((90+ll.Lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * OriginShift / 180
	return x, y
}
