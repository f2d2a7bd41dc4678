package tile

// LatLon is a WGS84 geographic coordinate pair in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// Size describes the pixel dimensions and channel count of a tile.
type Size struct {
	Width    int
	Height   int
	Channels int // 1=grayscale, 3=RGB, 4=RGBA
}

// DefaultTileSize is assumed when the tile server cannot be probed.
var DefaultTileSize = Size{Width: 256, Height: 256, Channels: 1}

// ImageData holds a decoded raster as a tightly packed row-major
// buffer with interleaved channels.
type ImageData struct {
	Buf      []byte
	Width    int
	Height   int
	Channels int // 1=grayscale, 3=RGB, 4=RGBA
}
