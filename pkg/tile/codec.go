package tile

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	// Tile servers commonly hand back PNG, JPEG, GIF or WebP
	// regardless of the extension in the URL template.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a raster tile in any registered format.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tile: %w", err)
	}
	return img, nil
}

// Channels reports how many channels the decoded image carries: 1 for
// grayscale, 3 for opaque color, 4 for color with an alpha channel.
func Channels(img image.Image) int {
	switch img := img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr:
		return 3
	case *image.NRGBA, *image.NRGBA64:
		return 4
	case *image.RGBA:
		if img.Opaque() {
			return 3
		}
		return 4
	default:
		if op, ok := img.(interface{ Opaque() bool }); ok && op.Opaque() {
			return 3
		}
		return 4
	}
}

// ToImageData flattens img into a packed buffer with the requested
// channel count, converting between color models as needed.
func ToImageData(img image.Image, channels int) *ImageData {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch channels {
	case 1:
		gray, ok := img.(*image.Gray)
		if !ok || gray.Stride != w || gray.Rect.Min != (image.Point{}) {
			gray = image.NewGray(image.Rect(0, 0, w, h))
			draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
		}
		return &ImageData{Buf: gray.Pix, Width: w, Height: h, Channels: 1}

	case 3:
		src := imaging.Clone(img)
		buf := make([]byte, w*h*3)
		for i, j := 0, 0; j < len(buf); i, j = i+4, j+3 {
			buf[j] = src.Pix[i]
			buf[j+1] = src.Pix[i+1]
			buf[j+2] = src.Pix[i+2]
		}
		return &ImageData{Buf: buf, Width: w, Height: h, Channels: 3}

	default:
		return &ImageData{Buf: imaging.Clone(img).Pix, Width: w, Height: h, Channels: 4}
	}
}

// Image wraps the buffer as a stdlib image for encoding.
// Three-channel buffers are expanded to opaque NRGBA since the stdlib
// has no packed RGB type.
func (d *ImageData) Image() image.Image {
	rect := image.Rect(0, 0, d.Width, d.Height)

	switch d.Channels {
	case 1:
		return &image.Gray{Pix: d.Buf, Stride: d.Width, Rect: rect}
	case 3:
		out := image.NewNRGBA(rect)
		for i, j := 0, 0; j < len(d.Buf); i, j = i+4, j+3 {
			out.Pix[i] = d.Buf[j]
			out.Pix[i+1] = d.Buf[j+1]
			out.Pix[i+2] = d.Buf[j+2]
			out.Pix[i+3] = 0xff
		}
		return out
	default:
		return &image.NRGBA{Pix: d.Buf, Stride: d.Width * 4, Rect: rect}
	}
}
