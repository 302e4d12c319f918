package compressor

import "sync"

var (
	defaultOnce       sync.Once
	defaultCompressor *Compressor
)

// Default returns a process-wide Compressor with the default decoder,
// encoder and a discarding logger, created on first use.
func Default() *Compressor {
	defaultOnce.Do(func() {
		defaultCompressor = New()
	})
	return defaultCompressor
}

// CompressToFile compresses src with the Default compressor.
func CompressToFile(src string, opts *Options) (string, error) {
	return Default().CompressToFile(src, opts)
}

// CompressToImage reduces src with the Default compressor.
func CompressToImage(src string, opts *Options) (*DecodedImage, error) {
	return Default().CompressToImage(src, opts)
}
