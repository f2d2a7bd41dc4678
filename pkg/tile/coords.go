package tile

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrBadCoordinate is returned when a coordinate string does not hold
// a latitude and a longitude.
var ErrBadCoordinate = errors.New("tile: coordinate needs a latitude and a longitude")

var coordPattern = regexp.MustCompile(`[+-]?(?:\d+\.\d+|\.\d+|\d+)`)

// ParseLatLon extracts the first two signed decimal numbers from s
// and interprets them as latitude and longitude. Surrounding text,
// brackets and degree marks are ignored, so "50.048426, -66.813065",
// "(50.048426 -66.813065)" and "50.048426°N -66.813065°E" all parse
// the same way. Southern latitudes and western longitudes need an
// explicit minus sign.
func ParseLatLon(s string) (LatLon, error) {
	nums := coordPattern.FindAllString(s, 2)
	if len(nums) < 2 {
		return LatLon{}, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
	}

	lat, err := strconv.ParseFloat(nums[0], 64)
	if err != nil {
		return LatLon{}, fmt.Errorf("%w: %q: %v", ErrBadCoordinate, s, err)
	}
	lon, err := strconv.ParseFloat(nums[1], 64)
	if err != nil {
		return LatLon{}, fmt.Errorf("%w: %q: %v", ErrBadCoordinate, s, err)
	}

	return LatLon{Lat: lat, Lon: lon}, nil
}
