package compressor

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"imgshrink/internal/logger"
	"imgshrink/internal/statistics"

	"github.com/sirupsen/logrus"
)

// outputPerm is the mode of written files; CreateTemp alone would leave 0600.
const outputPerm os.FileMode = 0644

const (
	sizeStep         = 10
	sizeMaxIteration = 10
	sizeMinQuality   = 10
)

// Compressor downsamples and re-encodes image files. It holds no per-call
// state and is safe for concurrent use.
type Compressor struct {
	decoder Decoder
	encoder Encoder
	log     logrus.FieldLogger
	stats   *statistics.Statistics
	workers int
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithDecoder replaces the default imaging decoder.
func WithDecoder(d Decoder) Option {
	return func(c *Compressor) { c.decoder = d }
}

// WithEncoder replaces the default imaging/webp encoder.
func WithEncoder(e Encoder) Option {
	return func(c *Compressor) { c.encoder = e }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Compressor) { c.log = l }
}

// WithStatistics records every call into s.
func WithStatistics(s *statistics.Statistics) Option {
	return func(c *Compressor) { c.stats = s }
}

// WithWorkers sets the CompressBatch pool size. Zero or less picks one per
// CPU, at least two.
func WithWorkers(n int) Option {
	return func(c *Compressor) { c.workers = n }
}

// New returns a Compressor using the imaging decoder and encoder unless
// overridden.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		decoder: NewImagingDecoder(),
		encoder: NewImagingEncoder(),
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompressToFile writes a reduced, re-encoded copy of src into
// opts.DestinationDir() and returns its path. A nil opts means
// DefaultOptions. Nothing is left at the destination on failure.
func (c *Compressor) CompressToFile(src string, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := logger.WithFileOperation(c.log, src, "compress_to_file")
	c.countProcessed()

	out, err := c.compressToFile(src, opts, log)
	if err != nil {
		c.recordError(src, err)
		log.WithError(err).Warn("compression failed")
		return "", err
	}
	return out.path, nil
}

// written describes a successful file compression.
type written struct {
	path    string
	factor  int
	quality int
	bytes   int64
}

func (c *Compressor) compressToFile(src string, opts *Options, log *logrus.Entry) (written, error) {
	if err := opts.Validate(); err != nil {
		return written{}, err
	}

	img, factor, err := c.decodeReduced(src, opts, log)
	if err != nil {
		return written{}, err
	}

	dest := destinationPath(opts)
	if err := c.ensureDir(opts.DestinationDir()); err != nil {
		return written{}, newError(KindIOFailure, "mkdir", opts.DestinationDir(), err)
	}
	out := written{path: dest, factor: factor, quality: opts.Quality()}

	if opts.MaxFileSize() > 0 && opts.Format().Lossy() {
		data, quality, err := c.encodeWithinSize(img, opts)
		if err != nil {
			return written{}, newError(KindEncodeFailure, "encode", src, err)
		}
		log.WithField("quality", quality).Debugf("Encoded %d bytes", len(data))
		out.quality = quality
		out.bytes = int64(len(data))
		err = writeAtomically(dest, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})
		if err != nil {
			return written{}, err
		}
	} else {
		err = writeAtomically(dest, func(w io.Writer) error {
			cw := &countingWriter{w: w}
			if err := c.encoder.Encode(cw, img, opts.Format(), opts.Quality()); err != nil {
				return newError(KindEncodeFailure, "encode", src, err)
			}
			out.bytes = cw.n
			return nil
		})
		if err != nil {
			return written{}, err
		}
	}

	c.recordWrite(src, out.bytes)
	log.WithFields(logrus.Fields{
		"factor":      factor,
		"destination": dest,
		"bytes":       out.bytes,
	}).Info("Image compressed")
	return out, nil
}

// CompressToImage returns src reduced to the options' bounding box without
// writing anything. A nil opts means DefaultOptions.
func (c *Compressor) CompressToImage(src string, opts *Options) (*DecodedImage, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := logger.WithFileOperation(c.log, src, "compress_to_image")
	c.countProcessed()

	if err := opts.Validate(); err != nil {
		c.recordError(src, err)
		return nil, err
	}
	img, factor, err := c.decodeReduced(src, opts, log)
	if err != nil {
		c.recordError(src, err)
		log.WithError(err).Warn("decode failed")
		return nil, err
	}
	if c.stats != nil {
		c.stats.IncrementFilesDecoded()
	}
	log.WithField("factor", factor).Debugf("Decoded %dx%d", img.Width(), img.Height())
	return img, nil
}

// decodeReduced probes src, plans the reduction factor and decodes at it.
func (c *Compressor) decodeReduced(src string, opts *Options, log *logrus.Entry) (*DecodedImage, int, error) {
	dims, err := c.decoder.Probe(src)
	if err != nil {
		return nil, 0, asError(KindInvalidInput, "probe", src, err)
	}

	tw, th := opts.targetBox()
	factor := PlanReduction(dims, tw, th)
	log.WithField("factor", factor).Debugf("Source %dx%d, target %dx%d", dims.Width, dims.Height, tw, th)

	img, err := c.decoder.Decode(src, factor, opts.Layout())
	if err != nil {
		return nil, 0, asError(KindDecodeFailure, "decode", src, err)
	}
	if img == nil || img.Image == nil {
		return nil, 0, newError(KindDecodeFailure, "decode", src, errors.New("decoder returned no image"))
	}
	if c.stats != nil {
		c.stats.RecordFactor(factor)
	}
	return img, factor, nil
}

// encodeWithinSize encodes img at the configured quality, then lowers quality
// in fixed steps until the output fits MaxFileSize or the iteration limit is
// reached. It returns the last encoding and the quality that produced it.
func (c *Compressor) encodeWithinSize(img *DecodedImage, opts *Options) ([]byte, int, error) {
	var buf bytes.Buffer
	quality := opts.Quality()
	if err := c.encoder.Encode(&buf, img, opts.Format(), quality); err != nil {
		return nil, quality, err
	}

	for iteration := 1; int64(buf.Len()) > opts.MaxFileSize() && iteration <= sizeMaxIteration; iteration++ {
		quality = max(100-iteration*sizeStep, sizeMinQuality)
		buf.Reset()
		if err := c.encoder.Encode(&buf, img, opts.Format(), quality); err != nil {
			return nil, quality, err
		}
		if c.stats != nil {
			c.stats.IncrementQualityRetries()
		}
	}
	return buf.Bytes(), quality, nil
}

func (c *Compressor) ensureDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if c.stats != nil {
		c.stats.IncrementDirectoriesCreated()
	}
	return nil
}

// writeAtomically streams fill into a temp file beside dest and renames it
// into place. The temp file is closed on every path and removed on failure.
func writeAtomically(dest string, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return newError(KindIOFailure, "create", dest, err)
	}
	tmpPath := tmp.Name()

	closed := false
	defer func() {
		if !closed {
			if cerr := tmp.Close(); cerr != nil && err == nil {
				err = newError(KindIOFailure, "close", dest, cerr)
			}
		}
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := fill(bw); err != nil {
		return asError(KindIOFailure, "write", dest, err)
	}
	if err := bw.Flush(); err != nil {
		return newError(KindIOFailure, "flush", dest, err)
	}
	if err := tmp.Sync(); err != nil {
		return newError(KindIOFailure, "sync", dest, err)
	}
	if err := tmp.Chmod(outputPerm); err != nil {
		return newError(KindIOFailure, "chmod", dest, err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return newError(KindIOFailure, "close", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return newError(KindIOFailure, "rename", dest, err)
	}
	return nil
}

// asError keeps an existing *Error and wraps anything else as kind.
func asError(kind Kind, op, path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(kind, op, path, err)
}

func (c *Compressor) countProcessed() {
	if c.stats != nil {
		c.stats.IncrementFilesProcessed()
	}
}

func (c *Compressor) recordError(src string, err error) {
	if c.stats != nil {
		c.stats.AddError(src, KindOf(err).String(), err.Error())
	}
}

func (c *Compressor) recordWrite(src string, n int64) {
	if c.stats == nil {
		return
	}
	c.stats.IncrementFilesCompressed()
	var in int64
	if info, err := os.Stat(src); err == nil {
		in = info.Size()
	}
	c.stats.AddBytes(in, n)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
