package compressor

import (
	"errors"
	"fmt"
	"image"
	"os"

	// imaging registers BMP and TIFF; WEBP input needs its own decoder.
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Dimensions is the pixel size of an image as read from its header.
type Dimensions struct {
	Width  int
	Height int
}

// DecodedImage is a raster owned by the call that produced it.
type DecodedImage struct {
	Image  image.Image
	Layout Layout
}

// Width returns the raster width in pixels.
func (d *DecodedImage) Width() int { return d.Image.Bounds().Dx() }

// Height returns the raster height in pixels.
func (d *DecodedImage) Height() int { return d.Image.Bounds().Dy() }

// Dimensions returns the raster's size.
func (d *DecodedImage) Dimensions() Dimensions {
	return Dimensions{Width: d.Width(), Height: d.Height()}
}

// Decoder reads image files.
type Decoder interface {
	// Probe reads only the image header.
	Probe(path string) (Dimensions, error)
	// Decode returns the image at 1/factor of its linear resolution.
	Decode(path string, factor int, layout Layout) (*DecodedImage, error)
}

// ImagingDecoder decodes with disintegration/imaging and the standard
// format registry.
type ImagingDecoder struct{}

// NewImagingDecoder returns a new ImagingDecoder.
func NewImagingDecoder() *ImagingDecoder {
	return &ImagingDecoder{}
}

// Probe returns the image dimensions without allocating pixel data.
func (d *ImagingDecoder) Probe(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, newError(KindInvalidInput, "probe", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, newError(KindInvalidInput, "probe", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, newError(KindInvalidInput, "probe", path,
			fmt.Errorf("degenerate dimensions %dx%d", cfg.Width, cfg.Height))
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode decodes path, box-subsamples it by factor and converts it to layout.
func (d *ImagingDecoder) Decode(path string, factor int, layout Layout) (*DecodedImage, error) {
	if factor < 1 {
		return nil, newError(KindInvalidInput, "decode", path, fmt.Errorf("invalid reduction factor %d", factor))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindInvalidInput, "decode", path, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, newError(KindDecodeFailure, "decode", path, err)
	}
	if img == nil {
		return nil, newError(KindDecodeFailure, "decode", path, errors.New("decoder returned no image"))
	}

	if factor > 1 {
		b := img.Bounds()
		w := max(b.Dx()/factor, 1)
		h := max(b.Dy()/factor, 1)
		img = imaging.Resize(img, w, h, imaging.Box)
	}

	return &DecodedImage{Image: toLayout(img, layout), Layout: layout}, nil
}

// toLayout returns img in the requested layout, copying only when needed.
func toLayout(img image.Image, layout Layout) image.Image {
	b := img.Bounds()
	var dst draw.Image
	switch layout {
	case LayoutRGBA:
		if m, ok := img.(*image.RGBA); ok {
			return m
		}
		dst = image.NewRGBA(b)
	case LayoutNRGBA64:
		if m, ok := img.(*image.NRGBA64); ok {
			return m
		}
		dst = image.NewNRGBA64(b)
	case LayoutGray:
		if m, ok := img.(*image.Gray); ok {
			return m
		}
		dst = image.NewGray(b)
	default:
		if m, ok := img.(*image.NRGBA); ok {
			return m
		}
		dst = image.NewNRGBA(b)
	}
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
