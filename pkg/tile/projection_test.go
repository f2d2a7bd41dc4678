package tile_test

import (
	"math"
	"testing"

	"github.com/EddyBeaupre/MapTileDownloader/pkg/tile"
	"github.com/stretchr/testify/require"
)

// Top edge of the Web-Mercator square.
const maxMercatorLat = 85.05112877980659

func TestProjectWorldCorners(t *testing.T) {
	x, y := tile.Project(tile.LatLon{Lat: 0, Lon: 0}, 0)
	require.InDelta(t, 0.5, x, 1e-9)
	require.InDelta(t, 0.5, y, 1e-9)

	x, y = tile.Project(tile.LatLon{Lat: maxMercatorLat, Lon: -180}, 0)
	require.InDelta(t, 0.0, x, 1e-6)
	require.InDelta(t, 0.0, y, 1e-6)

	x, y = tile.Project(tile.LatLon{Lat: -maxMercatorLat, Lon: 180}, 0)
	require.InDelta(t, 1.0, x, 1e-6)
	require.InDelta(t, 1.0, y, 1e-6)
}

func TestProjectScalesWithZoom(t *testing.T) {
	ll := tile.LatLon{Lat: 50.048426, Lon: -66.813065}

	x0, y0 := tile.Project(ll, 0)
	for zoom := 1; zoom <= 20; zoom++ {
		x, y := tile.Project(ll, zoom)
		scale := float64(uint64(1) << uint(zoom))
		require.InDelta(t, x0*scale, x, 1e-6*scale)
		require.InDelta(t, y0*scale, y, 1e-6*scale)
	}
}

func TestProjectKnownTiles(t *testing.T) {
	// Fractional coordinates floor to the XYZ tile indices.
	x, y := tile.Project(tile.LatLon{Lat: 50.048426, Lon: -66.813065}, 14)
	require.Equal(t, 5151, int(math.Floor(x)))
	require.Equal(t, 5553, int(math.Floor(y)))

	x, y = tile.Project(tile.LatLon{Lat: 50.024210, Lon: -66.763433}, 14)
	require.Equal(t, 5153, int(math.Floor(x)))
	require.Equal(t, 5554, int(math.Floor(y)))
}

func TestProjectPolesClamped(t *testing.T) {
	for _, lat := range []float64{90, -90, 89.9999} {
		x, y := tile.Project(tile.LatLon{Lat: lat, Lon: 0}, 4)
		require.False(t, math.IsNaN(x) || math.IsInf(x, 0))
		require.False(t, math.IsNaN(y) || math.IsInf(y, 0))
	}
}

func TestProjectMonotonic(t *testing.T) {
	prevX := math.Inf(-1)
	for lon := -180.0; lon <= 180; lon += 7.5 {
		x, _ := tile.Project(tile.LatLon{Lat: 10, Lon: lon}, 8)
		require.Greater(t, x, prevX)
		prevX = x
	}

	// Y grows towards the south.
	prevY := math.Inf(-1)
	for lat := 84.0; lat >= -84; lat -= 3.5 {
		_, y := tile.Project(tile.LatLon{Lat: lat, Lon: 10}, 8)
		require.Greater(t, y, prevY)
		prevY = y
	}
}

func TestUnprojectRoundTrip(t *testing.T) {
	for _, ll := range []tile.LatLon{
		{Lat: 0, Lon: 0},
		{Lat: 50.048426, Lon: -66.813065},
		{Lat: -33.856785, Lon: 151.214987},
		{Lat: 84.9, Lon: 179.9},
		{Lat: -84.9, Lon: -179.9},
	} {
		x, y := tile.Project(ll, 14)
		got := tile.Unproject(x, y, 14)
		require.InDelta(t, ll.Lat, got.Lat, 1e-9)
		require.InDelta(t, ll.Lon, got.Lon, 1e-9)
	}
}

func TestProjectMeters(t *testing.T) {
	x, y := tile.ProjectMeters(tile.LatLon{Lat: 0, Lon: 0})
	require.InDelta(t, 0, x, 1e-6)
	require.InDelta(t, 0, y, 1e-6)

	x, _ = tile.ProjectMeters(tile.LatLon{Lat: 0, Lon: 180})
	require.InDelta(t, tile.OriginShift, x, 1e-3)

	_, y = tile.ProjectMeters(tile.LatLon{Lat: maxMercatorLat, Lon: 0})
	require.InDelta(t, tile.OriginShift, y, 1e-3)
}
