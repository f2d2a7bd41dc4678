package stitch

import (
	"image"
	"math"

	"github.com/EddyBeaupre/MapTileDownloader/pkg/tile"
)

// Layout fixes every pixel measurement of a run before any tile is
// downloaded: which tiles cover the bounding box, how large the
// canvas is, and where the canvas sits in world pixel coordinates.
type Layout struct {
	Zoom     int
	TileSize tile.Size

	// Canvas top-left corner in world pixels at this zoom.
	OriginX int
	OriginY int

	// Canvas dimensions in pixels.
	Width  int
	Height int

	// Inclusive tile index ranges.
	TileMinX, TileMaxX int
	TileMinY, TileMaxY int
}

// PlanLayout computes the grid geometry for a bounding box. The
// corners are projected to fractional tile coordinates; their integer
// parts bound the tile grid and their pixel floors bound the canvas.
func PlanLayout(topLeft, botRight tile.LatLon, zoom int, size tile.Size) Layout {
	tlX, tlY := tile.Project(topLeft, zoom)
	brX, brY := tile.Project(botRight, zoom)

	originX := int(math.Floor(tlX * float64(size.Width)))
	originY := int(math.Floor(tlY * float64(size.Height)))
	cornerX := int(math.Floor(brX * float64(size.Width)))
	cornerY := int(math.Floor(brY * float64(size.Height)))

	return Layout{
		Zoom:     zoom,
		TileSize: size,
		OriginX:  originX,
		OriginY:  originY,
		Width:    abs(cornerX - originX),
		Height:   cornerY - originY,
		TileMinX: int(math.Floor(tlX)),
		TileMaxX: int(math.Floor(brX)),
		TileMinY: int(math.Floor(tlY)),
		TileMaxY: int(math.Floor(brY)),
	}
}

// Columns returns the tile grid width.
func (l Layout) Columns() int { return l.TileMaxX - l.TileMinX + 1 }

// Rows returns the tile grid height.
func (l Layout) Rows() int { return l.TileMaxY - l.TileMinY + 1 }

// TileCount returns how many tiles the layout spans.
func (l Layout) TileCount() int { return l.Columns() * l.Rows() }

// Placement returns where the tile at (tx, ty) lands on the canvas
// and which part of the tile to take. The two rectangles always have
// equal extents; a tile entirely outside the canvas yields empty
// rectangles.
func (l Layout) Placement(tx, ty int) (dst, src image.Rectangle) {
	relX := tx*l.TileSize.Width - l.OriginX
	relY := ty*l.TileSize.Height - l.OriginY

	dst = image.Rect(relX, relY, relX+l.TileSize.Width, relY+l.TileSize.Height).
		Intersect(image.Rect(0, 0, l.Width, l.Height))
	if dst.Empty() {
		return image.Rectangle{}, image.Rectangle{}
	}

	src = dst.Sub(image.Pt(relX, relY))
	return dst, src
}

// PixelSize returns the EPSG:3857 ground resolution of one canvas
// pixel in meters.
func (l Layout) PixelSize() (x, y float64) {
	scale := float64(uint64(1) << uint(l.Zoom))
	x = 2 * tile.OriginShift / (scale * float64(l.TileSize.Width))
	y = 2 * tile.OriginShift / (scale * float64(l.TileSize.Height))
	return x, y
}

// OriginMeters returns the EPSG:3857 coordinates of the canvas
// top-left corner.
func (l Layout) OriginMeters() (x, y float64) {
	scale := float64(uint64(1) << uint(l.Zoom))
	x = (float64(l.OriginX)/(scale*float64(l.TileSize.Width)) - 0.5) * 2 * tile.OriginShift
	y = (0.5 - float64(l.OriginY)/(scale*float64(l.TileSize.Height))) * 2 * tile.OriginShift
	return x, y
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
