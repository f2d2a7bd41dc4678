package stitch_test

import (
	"image"
	"math"
	"testing"

	"github.com/EddyBeaupre/MapTileDownloader/internal/stitch"
	"github.com/EddyBeaupre/MapTileDownloader/pkg/tile"
	"github.com/google/go-cmp/cmp"
)

var tile256 = tile.Size{Width: 256, Height: 256, Channels: 1}

func TestPlanLayoutKnownBox(t *testing.T) {
	topLeft := tile.LatLon{Lat: 50.048426, Lon: -66.813065}
	botRight := tile.LatLon{Lat: 50.024210, Lon: -66.763433}

	l := stitch.PlanLayout(topLeft, botRight, 14, tile256)

	if l.TileMinX != 5151 || l.TileMaxX != 5153 {
		t.Errorf("tile x range = %d..%d, want 5151..5153", l.TileMinX, l.TileMaxX)
	}
	if l.TileMinY != 5553 || l.TileMaxY != 5554 {
		t.Errorf("tile y range = %d..%d, want 5553..5554", l.TileMinY, l.TileMaxY)
	}
	if got, want := l.TileCount(), 6; got != want {
		t.Errorf("TileCount() = %d, want %d", got, want)
	}

	// The canvas is larger than a single tile but smaller than the
	// full 3x2 grid.
	if l.Width <= 256 || l.Width >= 768 {
		t.Errorf("Width = %d, want within (256, 768)", l.Width)
	}
	if l.Height <= 256 || l.Height >= 512 {
		t.Errorf("Height = %d, want within (256, 512)", l.Height)
	}

	// The canvas origin lies inside the first tile.
	if l.OriginX < l.TileMinX*256 || l.OriginX >= (l.TileMinX+1)*256 {
		t.Errorf("OriginX = %d outside tile %d", l.OriginX, l.TileMinX)
	}
	if l.OriginY < l.TileMinY*256 || l.OriginY >= (l.TileMinY+1)*256 {
		t.Errorf("OriginY = %d outside tile %d", l.OriginY, l.TileMinY)
	}
}

func TestPlanLayoutSingleTileWorld(t *testing.T) {
	l := stitch.PlanLayout(tile.LatLon{Lat: 60, Lon: -120}, tile.LatLon{Lat: -60, Lon: 120}, 0, tile256)

	if l.TileMinX != 0 || l.TileMaxX != 0 || l.TileMinY != 0 || l.TileMaxY != 0 {
		t.Errorf("tile range = x:%d..%d y:%d..%d, want the single 0/0 tile",
			l.TileMinX, l.TileMaxX, l.TileMinY, l.TileMaxY)
	}
	if l.Width != 171 {
		t.Errorf("Width = %d, want 171", l.Width)
	}
	if l.Height != 107 {
		t.Errorf("Height = %d, want 107", l.Height)
	}
}

func TestPlacement(t *testing.T) {
	l := stitch.Layout{
		TileSize: tile256,
		OriginX:  100,
		OriginY:  50,
		Width:    300,
		Height:   200,
		TileMinX: 0,
		TileMaxX: 1,
		TileMinY: 0,
		TileMaxY: 0,
	}

	tests := []struct {
		name     string
		tx, ty   int
		dst, src image.Rectangle
	}{
		{
			name: "first tile clipped top left",
			tx:   0, ty: 0,
			dst: image.Rect(0, 0, 156, 200),
			src: image.Rect(100, 50, 256, 250),
		},
		{
			name: "second tile clipped right",
			tx:   1, ty: 0,
			dst: image.Rect(156, 0, 300, 200),
			src: image.Rect(0, 50, 144, 250),
		},
		{
			name: "tile beyond the canvas",
			tx:   2, ty: 0,
			dst: image.Rectangle{},
			src: image.Rectangle{},
		},
	}

	for _, tc := range tests {
		dst, src := l.Placement(tc.tx, tc.ty)
		if diff := cmp.Diff(tc.dst, dst); diff != "" {
			t.Errorf("%s: dst mismatch (-want +got):\n%s", tc.name, diff)
		}
		if diff := cmp.Diff(tc.src, src); diff != "" {
			t.Errorf("%s: src mismatch (-want +got):\n%s", tc.name, diff)
		}
		if dst.Dx() != src.Dx() || dst.Dy() != src.Dy() {
			t.Errorf("%s: dst %v and src %v differ in extent", tc.name, dst, src)
		}
	}
}

func TestPlacementPartitionsCanvas(t *testing.T) {
	topLeft := tile.LatLon{Lat: 50.048426, Lon: -66.813065}
	botRight := tile.LatLon{Lat: 50.024210, Lon: -66.763433}
	l := stitch.PlanLayout(topLeft, botRight, 14, tile256)

	covered := make([]byte, l.Width*l.Height)
	for ty := l.TileMinY; ty <= l.TileMaxY; ty++ {
		for tx := l.TileMinX; tx <= l.TileMaxX; tx++ {
			dst, src := l.Placement(tx, ty)
			if dst.Dx() != src.Dx() || dst.Dy() != src.Dy() {
				t.Fatalf("tile %d/%d: dst %v and src %v differ in extent", tx, ty, dst, src)
			}
			if !src.In(image.Rect(0, 0, 256, 256)) && !src.Empty() {
				t.Fatalf("tile %d/%d: src %v outside the tile", tx, ty, src)
			}
			for y := dst.Min.Y; y < dst.Max.Y; y++ {
				for x := dst.Min.X; x < dst.Max.X; x++ {
					covered[y*l.Width+x]++
				}
			}
		}
	}

	for i, c := range covered {
		if c != 1 {
			t.Fatalf("pixel %d/%d covered %d times", i%l.Width, i/l.Width, c)
		}
	}
}

func TestPixelSize(t *testing.T) {
	l := stitch.Layout{Zoom: 0, TileSize: tile256}
	px, py := l.PixelSize()

	want := 2 * tile.OriginShift / 256
	if math.Abs(px-want) > 1e-6 || math.Abs(py-want) > 1e-6 {
		t.Errorf("PixelSize() = %g,%g, want %g", px, py, want)
	}
}

func TestOriginMeters(t *testing.T) {
	l := stitch.Layout{Zoom: 0, TileSize: tile256}
	x, y := l.OriginMeters()
	if math.Abs(x+tile.OriginShift) > 1e-6 || math.Abs(y-tile.OriginShift) > 1e-6 {
		t.Errorf("OriginMeters() = %g,%g, want %g,%g", x, y, -tile.OriginShift, tile.OriginShift)
	}

	l.OriginX, l.OriginY = 128, 128
	x, y = l.OriginMeters()
	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("OriginMeters() at the projection center = %g,%g, want 0,0", x, y)
	}
}
