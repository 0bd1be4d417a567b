package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// ErrUnsupportedBuffer is returned by FromRaw for pixel buffers whose
// length matches none of the recognized channel layouts.
var ErrUnsupportedBuffer = fmt.Errorf("unsupported raw pixel buffer length")

// FromRaw reconstructs an RGBA image from format-native pixel data.
// Accepted layouts: w*h*4 (RGBA, copied through), w*h*3 (RGB, alpha
// forced to 255) and w*h (grayscale, value replicated into R/G/B).
func FromRaw(buf []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	pixels := width * height
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	switch len(buf) {
	case pixels * 4:
		copy(img.Pix, buf)
	case pixels * 3:
		for i := 0; i < pixels; i++ {
			img.Pix[i*4+0] = buf[i*3+0]
			img.Pix[i*4+1] = buf[i*3+1]
			img.Pix[i*4+2] = buf[i*3+2]
			img.Pix[i*4+3] = 255
		}
	case pixels:
		for i := 0; i < pixels; i++ {
			img.Pix[i*4+0] = buf[i]
			img.Pix[i*4+1] = buf[i]
			img.Pix[i*4+2] = buf[i]
			img.Pix[i*4+3] = 255
		}
	default:
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrUnsupportedBuffer, len(buf), width, height)
	}

	return img, nil
}

// EncodePNG re-encodes an image losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads any registered raster format (png, jpeg, gif).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// DecodeJPEG decodes DCT-encoded sample data directly.
func DecodeJPEG(data []byte) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(data))
}

// Bounds reads only the dimensions of an encoded image.
func Bounds(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Downscale bounds the largest dimension of img to maxDim, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = h * maxDim / w
	} else {
		nh = maxDim
		nw = w * maxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
