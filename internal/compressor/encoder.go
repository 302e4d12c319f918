package compressor

import (
	"fmt"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Encoder serializes a decoded raster.
type Encoder interface {
	Encode(w io.Writer, img *DecodedImage, format Format, quality int) error
}

// ImagingEncoder writes JPEG and PNG through disintegration/imaging and
// lossy WEBP through chai2010/webp. PNG ignores quality.
type ImagingEncoder struct{}

// NewImagingEncoder returns a new ImagingEncoder.
func NewImagingEncoder() *ImagingEncoder {
	return &ImagingEncoder{}
}

// Encode writes img to w in format.
func (e *ImagingEncoder) Encode(w io.Writer, img *DecodedImage, format Format, quality int) error {
	if img == nil || img.Image == nil {
		return fmt.Errorf("nothing to encode")
	}
	switch format {
	case FormatJPEG:
		return imaging.Encode(w, img.Image, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		return imaging.Encode(w, img.Image, imaging.PNG)
	case FormatWEBP:
		return webp.Encode(w, img.Image, &webp.Options{Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
