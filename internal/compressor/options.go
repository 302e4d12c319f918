package compressor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Format is the output encoding.
type Format int

const (
	// FormatJPEG is lossy JPEG, the default.
	FormatJPEG Format = iota
	// FormatPNG is lossless PNG; quality is ignored.
	FormatPNG
	// FormatWEBP is lossy WEBP.
	FormatWEBP
)

// Layout describes the channel layout and bit depth of a decoded raster.
type Layout int

const (
	// LayoutNRGBA is 32 bits per pixel with non-premultiplied alpha.
	LayoutNRGBA Layout = iota
	// LayoutRGBA is 32 bits per pixel with premultiplied alpha.
	LayoutRGBA
	// LayoutNRGBA64 is 64 bits per pixel with non-premultiplied alpha.
	LayoutNRGBA64
	// LayoutGray is 8 bits per pixel luminance, no alpha.
	LayoutGray
)

// Defaults used by DefaultOptions and NewBuilder.
const (
	DefaultMaxWidth  = 612.0
	DefaultMaxHeight = 816.0
	DefaultQuality   = 80
)

var validate = validator.New()

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	default:
		return "jpg"
	}
}

// Lossy reports whether quality affects the encoded output.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWEBP
}

func (f Format) valid() bool {
	return f >= FormatJPEG && f <= FormatWEBP
}

// ParseFormat maps a format name or extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWEBP, nil
	default:
		return FormatJPEG, fmt.Errorf("unsupported format: %s", s)
	}
}

// FormatFromPath picks the format matching path's extension, JPEG otherwise.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatJPEG
	}
	return f
}

func (l Layout) String() string {
	switch l {
	case LayoutNRGBA:
		return "nrgba"
	case LayoutRGBA:
		return "rgba"
	case LayoutNRGBA64:
		return "nrgba64"
	case LayoutGray:
		return "gray"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

func (l Layout) valid() bool {
	return l >= LayoutNRGBA && l <= LayoutGray
}

// ParseLayout maps a layout name to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "nrgba", "argb8888", "":
		return LayoutNRGBA, nil
	case "rgba":
		return LayoutRGBA, nil
	case "nrgba64", "rgba64":
		return LayoutNRGBA64, nil
	case "gray", "grey", "alpha8":
		return LayoutGray, nil
	default:
		return LayoutNRGBA, fmt.Errorf("unsupported pixel layout: %s", s)
	}
}

// DefaultDestinationDir returns the process-owned cache directory used when
// no destination is configured.
func DefaultDestinationDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "imgshrink", "compressed")
}

type values struct {
	MaxWidth       float64 `validate:"gt=0"`
	MaxHeight      float64 `validate:"gt=0"`
	Format         Format
	Layout         Layout
	Quality        int    `validate:"min=0,max=100"`
	DestinationDir string `validate:"required"`
	FileNamePrefix string `validate:"omitempty,excludesall=/\\"`
	FileName       string `validate:"omitempty,excludesall=/\\"`
	MaxFileSize    int64  `validate:"gte=0"`
}

// Options is an immutable set of compression settings. Build one with
// NewBuilder or take DefaultOptions.
type Options struct {
	v values
}

// DefaultOptions returns 612x816 JPEG at quality 80 into the cache directory.
func DefaultOptions() *Options {
	return &Options{v: defaultValues()}
}

func defaultValues() values {
	return values{
		MaxWidth:       DefaultMaxWidth,
		MaxHeight:      DefaultMaxHeight,
		Format:         FormatJPEG,
		Layout:         LayoutNRGBA,
		Quality:        DefaultQuality,
		DestinationDir: DefaultDestinationDir(),
	}
}

// MaxWidth returns the bounding box width in pixels.
func (o *Options) MaxWidth() float64 { return o.v.MaxWidth }

// MaxHeight returns the bounding box height in pixels.
func (o *Options) MaxHeight() float64 { return o.v.MaxHeight }

// Format returns the output encoding.
func (o *Options) Format() Format { return o.v.Format }

// Layout returns the pixel layout of decoded rasters.
func (o *Options) Layout() Layout { return o.v.Layout }

// Quality returns the encoder quality, 0 to 100.
func (o *Options) Quality() int { return o.v.Quality }

// DestinationDir returns the directory CompressToFile writes into.
func (o *Options) DestinationDir() string { return o.v.DestinationDir }

// FileNamePrefix returns the prefix for generated file names.
func (o *Options) FileNamePrefix() string { return o.v.FileNamePrefix }

// FileName returns the fixed output file name, empty for generated names.
func (o *Options) FileName() string { return o.v.FileName }

// MaxFileSize is the encoded size limit in bytes; zero disables it.
func (o *Options) MaxFileSize() int64 { return o.v.MaxFileSize }

// targetBox is the bounding box in whole pixels.
func (o *Options) targetBox() (int, int) {
	return int(o.v.MaxWidth), int(o.v.MaxHeight)
}

// Validate checks the options. Failures are KindInvalidInput errors.
func (o *Options) Validate() error {
	if o == nil {
		return newError(KindInvalidInput, "validate", "", errors.New("options are nil"))
	}
	return o.v.validate()
}

func (v values) validate() error {
	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			err = fmt.Errorf("%s %s", fe.Field(), validationMessage(fe))
		}
		return newError(KindInvalidInput, "validate", "", err)
	}
	if v.FileName != "" && strings.Trim(v.FileName, ".") == "" {
		return newError(KindInvalidInput, "validate", "", fmt.Errorf("FileName %q is not a file name", v.FileName))
	}
	if !v.Format.valid() {
		return newError(KindInvalidInput, "validate", "", fmt.Errorf("unknown format %s", v.Format))
	}
	if !v.Layout.valid() {
		return newError(KindInvalidInput, "validate", "", fmt.Errorf("unknown pixel layout %s", v.Layout))
	}
	if int(v.MaxWidth) < 1 || int(v.MaxHeight) < 1 {
		return newError(KindInvalidInput, "validate", "",
			fmt.Errorf("bounding box %vx%v is smaller than one pixel", v.MaxWidth, v.MaxHeight))
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "excludesall":
		return "must not contain path separators"
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

// Builder accumulates settings for an Options value.
type Builder struct {
	v values
}

// NewBuilder returns a builder seeded with the default options.
func NewBuilder() *Builder {
	return &Builder{v: defaultValues()}
}

// MaxWidth sets the bounding box width.
func (b *Builder) MaxWidth(w float64) *Builder {
	b.v.MaxWidth = w
	return b
}

// MaxHeight sets the bounding box height.
func (b *Builder) MaxHeight(h float64) *Builder {
	b.v.MaxHeight = h
	return b
}

// Format sets the output encoding.
func (b *Builder) Format(f Format) *Builder {
	b.v.Format = f
	return b
}

// Layout sets the decoded pixel layout.
func (b *Builder) Layout(l Layout) *Builder {
	b.v.Layout = l
	return b
}

// Quality sets the encoder quality.
func (b *Builder) Quality(q int) *Builder {
	b.v.Quality = q
	return b
}

// DestinationDir sets the output directory.
func (b *Builder) DestinationDir(dir string) *Builder {
	b.v.DestinationDir = dir
	return b
}

// FileNamePrefix sets the prefix for generated file names.
func (b *Builder) FileNamePrefix(prefix string) *Builder {
	b.v.FileNamePrefix = prefix
	return b
}

// FileName fixes the output file name instead of generating one.
func (b *Builder) FileName(name string) *Builder {
	b.v.FileName = name
	return b
}

// MaxFileSize sets the encoded size limit in bytes; zero disables it.
func (b *Builder) MaxFileSize(n int64) *Builder {
	b.v.MaxFileSize = n
	return b
}

// Builder returns a builder seeded with o's settings. Changes to it never
// affect o.
func (o *Options) Builder() *Builder {
	return &Builder{v: o.v}
}

// Build validates and returns a snapshot of the builder's settings. Later
// builder calls do not affect the returned Options.
func (b *Builder) Build() (*Options, error) {
	if err := b.v.validate(); err != nil {
		return nil, err
	}
	return &Options{v: b.v}, nil
}
