package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"imgshrink/internal/compressor"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 612.0, cfg.Compression.MaxWidth)
	assert.Equal(t, 816.0, cfg.Compression.MaxHeight)
	assert.Equal(t, "jpeg", cfg.Compression.Format)
	assert.Equal(t, "nrgba", cfg.Compression.Layout)
	assert.Equal(t, 80, cfg.Compression.Quality)
	assert.Empty(t, cfg.Compression.DestinationDir)
	assert.Zero(t, cfg.Performance.WorkerThreads)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Contains(t, cfg.Watch.Extensions, ".webp")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Compress)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dest := t.TempDir()
	path := writeConfig(t, `
compression:
  max_width: 300
  max_height: 200
  format: WEBP
  quality: 60
  destination_dir: `+dest+`
  file_name_prefix: thumb
  max_file_size: 20000
performance:
  worker_threads: 3
watch:
  extensions: [JPG, png]
  debounce: 2s
logging:
  level: debug
  compress: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 300.0, cfg.Compression.MaxWidth)
	assert.Equal(t, "webp", cfg.Compression.Format)
	assert.Equal(t, "nrgba", cfg.Compression.Layout)
	assert.Equal(t, 3, cfg.Performance.WorkerThreads)
	assert.Equal(t, []string{".jpg", ".png"}, cfg.Watch.Extensions)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Compress)
	assert.Equal(t, 10, cfg.Logging.MaxSize)

	opts, err := cfg.CompressionOptions()
	require.NoError(t, err)
	assert.Equal(t, compressor.FormatWEBP, opts.Format())
	assert.Equal(t, 60, opts.Quality())
	assert.Equal(t, dest, opts.DestinationDir())
	assert.Equal(t, "thumb", opts.FileNamePrefix())
	assert.Equal(t, int64(20000), opts.MaxFileSize())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "compression:\n  quality: 40\n")
	t.Setenv("IMGSHRINK_COMPRESSION_QUALITY", "55")
	t.Setenv("IMGSHRINK_COMPRESSION_FORMAT", "png")
	t.Setenv("IMGSHRINK_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.Compression.Quality)
	assert.Equal(t, "png", cfg.Compression.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("IMGSHRINK_COMPRESSION_QUALITY", "55")

	v := viper.New()
	v.Set("compression.quality", 25)

	cfg, err := Load(v, writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Compression.Quality)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Compression.Quality)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"quality", "compression:\n  quality: 150\n", "Quality"},
		{"format", "compression:\n  format: gif\n", "Format"},
		{"layout", "compression:\n  layout: cmyk\n", "Layout"},
		{"width", "compression:\n  max_width: -1\n", "MaxWidth"},
		{"level", "logging:\n  level: chatty\n", "Level"},
		{"workers", "performance:\n  worker_threads: -2\n", "WorkerThreads"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompressionOptionsDefaultsDestination(t *testing.T) {
	opts, err := DefaultConfig().CompressionOptions()
	require.NoError(t, err)
	assert.Equal(t, compressor.DefaultDestinationDir(), opts.DestinationDir())
	assert.Equal(t, compressor.FormatJPEG, opts.Format())
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.FilePath = "/var/log/imgshrink.log"

	lc := cfg.LoggerConfig()
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "/var/log/imgshrink.log", lc.FilePath)
	assert.True(t, lc.Console)
}

func TestIsImageExtension(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.IsImageExtension(".JPG"))
	assert.True(t, cfg.IsImageExtension(".webp"))
	assert.False(t, cfg.IsImageExtension(".txt"))
}
