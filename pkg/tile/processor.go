package tile

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultURLTemplate points at Google satellite imagery.
const DefaultURLTemplate = "https://mt.google.com/vt/lyrs=s&x={x}&y={y}&z={z}"

// ErrInvalidTemplate is returned for URL templates missing one of the
// tile coordinate placeholders.
var ErrInvalidTemplate = errors.New("tile: URL template must contain {x}, {y} and {z}")

// DefaultHeaders returns the desktop-browser header set sent with
// every tile request unless the caller supplies its own. Each call
// returns a fresh map.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"cache-control":             "max-age=0",
		"sec-ch-ua":                 `" Not A;Brand";v="99", "Chromium";v="99", "Google Chrome";v="99"`,
		"sec-ch-ua-mobile":          "?0",
		"sec-ch-ua-platform":        `"Windows"`,
		"sec-fetch-dest":            "document",
		"sec-fetch-mode":            "navigate",
		"sec-fetch-site":            "none",
		"sec-fetch-user":            "?1",
		"upgrade-insecure-requests": "1",
		"user-agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/99.0.4844.82 Safari/537.36",
	}
}

// Processor downloads and decodes tiles from one XYZ tile server.
// It is safe for concurrent use.
type Processor struct {
	client   *http.Client
	template string
	headers  map[string]string
}

// NewProcessor validates the URL template and returns a processor.
// An empty template selects DefaultURLTemplate, nil headers select
// DefaultHeaders, and a non-positive timeout means 30 seconds per
// request.
func NewProcessor(template string, headers map[string]string, timeout time.Duration) (*Processor, error) {
	if template == "" {
		template = DefaultURLTemplate
	}
	if !strings.Contains(template, "{x}") ||
		!strings.Contains(template, "{y}") ||
		!strings.Contains(template, "{z}") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, template)
	}

	if headers == nil {
		headers = DefaultHeaders()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Processor{
		client:   &http.Client{Timeout: timeout},
		template: template,
		headers:  headers,
	}, nil
}

// Template returns the URL template the processor was built with.
func (p *Processor) Template() string {
	return p.template
}

// TileURL expands the template for one tile. A {s} placeholder
// rotates through the subdomains a-c by tile position.
func (p *Processor) TileURL(x, y, zoom int) string {
	url := p.template
	url = strings.ReplaceAll(url, "{x}", strconv.Itoa(x))
	url = strings.ReplaceAll(url, "{y}", strconv.Itoa(y))
	url = strings.ReplaceAll(url, "{z}", strconv.Itoa(zoom))
	if strings.Contains(url, "{s}") {
		subdomain := string(rune('a' + (x+y)%3))
		url = strings.ReplaceAll(url, "{s}", subdomain)
	}
	return url
}

// FetchTile downloads and decodes the tile at x, y.
func (p *Processor) FetchTile(ctx context.Context, x, y, zoom int) (image.Image, error) {
	url := p.TileURL(x, y, zoom)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range p.headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s: HTTP %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return img, nil
}

// ProbeTileSize fetches one representative tile to learn the server's
// tile dimensions and channel count. On failure it returns
// DefaultTileSize together with the cause so the caller can warn and
// carry on.
func (p *Processor) ProbeTileSize(ctx context.Context, x, y, zoom int) (Size, error) {
	img, err := p.FetchTile(ctx, x, y, zoom)
	if err != nil {
		return DefaultTileSize, fmt.Errorf("tile size probe: %w", err)
	}

	b := img.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy(), Channels: Channels(img)}, nil
}
