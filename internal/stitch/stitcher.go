package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EddyBeaupre/MapTileDownloader/pkg/tile"
)

// Input errors.
var (
	ErrCornerOrder     = errors.New("stitch: top-left corner must be north and west of bottom-right")
	ErrCoordinateRange = errors.New("stitch: coordinate out of range")
	ErrZoomRange       = errors.New("stitch: zoom must be between 0 and 22")
	ErrCanvasEmpty     = errors.New("stitch: bounding box projects to an empty image")
	ErrCanvasTooLarge  = errors.New("stitch: output image would be too large")
)

const (
	maxZoom         = 22
	maxCanvasPixels = 10000 * 10000
)

// ProgressFunc receives tile completion counts. It is called once
// with (0, total) before any download starts and then after every
// tile, successful or not. Later calls arrive from concurrent
// goroutines: the counts only grow, but callbacks may be observed
// out of order.
type ProgressFunc func(completed, total int)

// Options configures a stitching run. Zero values select the
// defaults noted on each field.
type Options struct {
	// URL is the tile server template with {x}, {y} and {z}
	// placeholders ({s} rotates through subdomains a-c). Empty
	// selects tile.DefaultURLTemplate.
	URL string

	// Headers replaces the default browser header set entirely when
	// non-nil.
	Headers map[string]string

	// Zoom is the tile zoom level.
	Zoom int

	// Timeout bounds each tile request. Zero means 30 seconds.
	Timeout time.Duration

	// Progress, when non-nil, is invoked after every tile.
	Progress ProgressFunc

	// Report, when non-nil, receives the human-readable run summary.
	Report io.Writer

	// Logger, when non-nil, receives per-tile diagnostics.
	Logger *slog.Logger
}

// Result is a finished canvas plus its georeferencing.
type Result struct {
	Image  *tile.ImageData
	Layout Layout

	// TilesFailed counts tiles that could not be fetched or decoded;
	// their canvas regions stay zeroed.
	TilesTotal  int
	TilesFailed int

	// ProbeErr is non-nil when the tile size probe failed and the
	// 256x256 grayscale fallback was used for the whole run.
	ProbeErr error
}

// Stitcher downloads map tiles and composites them into single
// images.
type Stitcher struct {
	opts Options
	proc *tile.Processor
	log  *slog.Logger
}

// New validates the options and returns a ready Stitcher.
func New(opts Options) (*Stitcher, error) {
	proc, err := tile.NewProcessor(opts.URL, opts.Headers, opts.Timeout)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Stitcher{opts: opts, proc: proc, log: log}, nil
}

// Stitch downloads every tile covering the box between topLeft and
// botRight and composites them into one image. Individual tile
// failures leave their region zeroed and are only counted; the run
// fails on invalid input, an oversized canvas or a cancelled context.
func (s *Stitcher) Stitch(ctx context.Context, topLeft, botRight tile.LatLon) (*Result, error) {
	if err := validateBox(topLeft, botRight, s.opts.Zoom); err != nil {
		return nil, err
	}

	size, probeErr := s.probe(ctx, topLeft)
	layout := PlanLayout(topLeft, botRight, s.opts.Zoom, size)

	if layout.Width == 0 || layout.Height == 0 {
		return nil, fmt.Errorf("%w: %gx%g degrees is below one pixel at zoom %d",
			ErrCanvasEmpty, botRight.Lon-topLeft.Lon, topLeft.Lat-botRight.Lat, layout.Zoom)
	}
	if int64(layout.Width)*int64(layout.Height) > maxCanvasPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, layout.Width, layout.Height)
	}

	s.report(topLeft, botRight, layout, probeErr)

	canvas := &tile.ImageData{
		Buf:      make([]byte, layout.Width*layout.Height*size.Channels),
		Width:    layout.Width,
		Height:   layout.Height,
		Channels: size.Channels,
	}

	total := layout.TileCount()
	s.progress(0, total)

	// One goroutine per tile row. Rows own disjoint horizontal bands
	// of the canvas, so the buffer needs no locking; the progress
	// counter is the only shared state.
	var done, failed atomic.Int64
	var wg sync.WaitGroup
	for ty := layout.TileMinY; ty <= layout.TileMaxY; ty++ {
		wg.Add(1)
		go func(ty int) {
			defer wg.Done()
			failed.Add(s.fetchRow(ctx, canvas, layout, ty, &done, total))
		}(ty)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Image:       canvas,
		Layout:      layout,
		TilesTotal:  total,
		TilesFailed: int(failed.Load()),
		ProbeErr:    probeErr,
	}
	if result.TilesFailed > 0 {
		fmt.Fprintf(s.reportTo(), "==Missing Tiles: %d of %d\n", result.TilesFailed, total)
	}
	return result, nil
}

// fetchRow downloads one horizontal row of tiles, left to right, into
// the canvas band the row owns. Returns the number of failed tiles.
func (s *Stitcher) fetchRow(ctx context.Context, canvas *tile.ImageData, layout Layout, ty int, done *atomic.Int64, total int) int64 {
	var failed int64
	for tx := layout.TileMinX; tx <= layout.TileMaxX; tx++ {
		img, err := s.proc.FetchTile(ctx, tx, ty, layout.Zoom)
		if err != nil {
			s.log.Warn("tile skipped", "x", tx, "y", ty, "zoom", layout.Zoom, "error", err)
			failed++
		} else {
			s.copyTile(canvas, layout, tx, ty, img)
		}
		s.progress(int(done.Add(1)), total)
	}
	return failed
}

// copyTile crops the decoded tile to its placement and copies it row
// by row into the canvas.
func (s *Stitcher) copyTile(canvas *tile.ImageData, layout Layout, tx, ty int, img image.Image) {
	dst, src := layout.Placement(tx, ty)
	if dst.Empty() {
		return
	}

	data := tile.ToImageData(img, canvas.Channels)

	// A tile smaller than the probed size shrinks the copy; the
	// uncovered part of the placement stays zeroed. Oversized tiles
	// are clipped by the placement itself.
	if over := src.Max.X - data.Width; over > 0 {
		src.Max.X -= over
		dst.Max.X -= over
	}
	if over := src.Max.Y - data.Height; over > 0 {
		src.Max.Y -= over
		dst.Max.Y -= over
	}
	if src.Empty() {
		return
	}

	ch := canvas.Channels
	rowBytes := src.Dx() * ch
	for y := 0; y < src.Dy(); y++ {
		srcOff := ((src.Min.Y+y)*data.Width + src.Min.X) * ch
		dstOff := ((dst.Min.Y+y)*canvas.Width + dst.Min.X) * ch
		copy(canvas.Buf[dstOff:dstOff+rowBytes], data.Buf[srcOff:srcOff+rowBytes])
	}
}

// probe fetches the top-left tile to size the canvas. A failed probe
// falls back to 256x256 grayscale and the run carries on.
func (s *Stitcher) probe(ctx context.Context, topLeft tile.LatLon) (tile.Size, error) {
	px, py := tile.Project(topLeft, s.opts.Zoom)
	size, err := s.proc.ProbeTileSize(ctx, int(math.Floor(px)), int(math.Floor(py)), s.opts.Zoom)
	if err != nil {
		s.log.Warn("tile size probe failed, assuming 256x256 grayscale", "error", err)
	}
	return size, err
}

func (s *Stitcher) report(topLeft, botRight tile.LatLon, layout Layout, probeErr error) {
	w := s.reportTo()

	xTL, yTL := tile.ProjectMeters(topLeft)
	xBR, yBR := tile.ProjectMeters(botRight)

	fmt.Fprintf(w, "==Tile Server: %s\n", s.proc.Template())
	fmt.Fprintf(w, "==Geodetic Bounds (EPSG:4326): %.17g,%.17g to %.17g,%.17g\n",
		topLeft.Lat, topLeft.Lon, botRight.Lat, botRight.Lon)
	fmt.Fprintf(w, "==Projected Bounds (EPSG:3857): %.17g,%.17g to %.17g,%.17g\n", yTL, xTL, yBR, xBR)
	fmt.Fprintf(w, "==Zoom Level: %d\n", layout.Zoom)
	fmt.Fprintf(w, "==Tile Grid: %dx%d tiles of %dx%dx%d\n",
		layout.Columns(), layout.Rows(),
		layout.TileSize.Width, layout.TileSize.Height, layout.TileSize.Channels)
	fmt.Fprintf(w, "==Upper Left Tile: x:%d y:%d\n", layout.TileMinX, layout.TileMinY)
	fmt.Fprintf(w, "==Lower Right Tile: x:%d y:%d\n", layout.TileMaxX, layout.TileMaxY)
	fmt.Fprintf(w, "==Raster Size: %dx%d\n", layout.Width, layout.Height)
	px, py := layout.PixelSize()
	fmt.Fprintf(w, "==Pixel Size: x:%.17g y:%.17g\n", px, py)
	if probeErr != nil {
		fmt.Fprintf(w, "==Warning: %v, assuming 256x256 grayscale tiles\n", probeErr)
	}
}

func (s *Stitcher) reportTo() io.Writer {
	if s.opts.Report != nil {
		return s.opts.Report
	}
	return io.Discard
}

func (s *Stitcher) progress(done, total int) {
	if s.opts.Progress != nil {
		s.opts.Progress(done, total)
	}
}

func validateBox(topLeft, botRight tile.LatLon, zoom int) error {
	if zoom < 0 || zoom > maxZoom {
		return fmt.Errorf("%w, got %d", ErrZoomRange, zoom)
	}
	for _, ll := range []tile.LatLon{topLeft, botRight} {
		if ll.Lat < -90 || ll.Lat > 90 || ll.Lon < -180 || ll.Lon > 180 {
			return fmt.Errorf("%w: %g,%g", ErrCoordinateRange, ll.Lat, ll.Lon)
		}
	}
	if topLeft.Lat <= botRight.Lat || topLeft.Lon >= botRight.Lon {
		return fmt.Errorf("%w, got (%g,%g) and (%g,%g)",
			ErrCornerOrder, topLeft.Lat, topLeft.Lon, botRight.Lat, botRight.Lon)
	}
	return nil
}
