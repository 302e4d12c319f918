package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"imgshrink/internal/compressor"
	"imgshrink/internal/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// IMGSHRINK_COMPRESSION_QUALITY.
const EnvPrefix = "IMGSHRINK"

// Config represents the main configuration structure
type Config struct {
	Compression CompressionConfig `mapstructure:"compression"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Watch       WatchConfig       `mapstructure:"watch"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CompressionConfig mirrors compressor.Options in file form.
type CompressionConfig struct {
	MaxWidth       float64 `mapstructure:"max_width" default:"612" validate:"gt=0"`
	MaxHeight      float64 `mapstructure:"max_height" default:"816" validate:"gt=0"`
	Format         string  `mapstructure:"format" default:"jpeg" validate:"oneof=jpg jpeg png webp"`
	Layout         string  `mapstructure:"layout" default:"nrgba" validate:"oneof=nrgba rgba nrgba64 gray"`
	Quality        int     `mapstructure:"quality" default:"80" validate:"min=0,max=100"`
	DestinationDir string  `mapstructure:"destination_dir"`
	FileNamePrefix string  `mapstructure:"file_name_prefix" validate:"omitempty,excludesall=/\\"`
	MaxFileSize    int64   `mapstructure:"max_file_size" validate:"gte=0"`
}

// PerformanceConfig contains performance tuning settings
type PerformanceConfig struct {
	WorkerThreads int `mapstructure:"worker_threads" validate:"gte=0"` // 0 means one per CPU
}

// WatchConfig controls the directory watcher.
type WatchConfig struct {
	Extensions []string      `mapstructure:"extensions" default:"[\".jpg\",\".jpeg\",\".png\",\".webp\",\".bmp\",\".tif\",\".tiff\"]" validate:"min=1"`
	Debounce   time.Duration `mapstructure:"debounce" default:"500ms" validate:"gte=0"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size" default:"10"` // MB
	MaxBackups int    `mapstructure:"max_backups" default:"3"`
	MaxAge     int    `mapstructure:"max_age" default:"30"` // days
	Compress   bool   `mapstructure:"compress" default:"true"`
}

var validate = validator.New()

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	return Load(viper.New(), configPath)
}

// Load reads configuration into defaults through v. Flags already bound on v
// take precedence over the environment, which takes precedence over the
// file. An empty configPath searches the usual locations and tolerates a
// missing file.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.imgshrink")
		v.AddConfigPath("/etc/imgshrink")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v, "", reflect.TypeOf(*cfg)); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// bindEnv registers every mapstructure key so Unmarshal sees environment
// overrides for keys absent from the file.
func bindEnv(v *viper.Viper, prefix string, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := bindEnv(v, key, field.Type); err != nil {
				return err
			}
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate validates the configuration and normalizes extensions.
func (c *Config) Validate() error {
	c.Compression.Format = strings.ToLower(c.Compression.Format)
	c.Compression.Layout = strings.ToLower(c.Compression.Layout)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Watch.Extensions = normalizeExtensions(c.Watch.Extensions)

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid %s: %v (rule %s)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}

// CompressionOptions converts the compression section into validated options.
func (c *Config) CompressionOptions() (*compressor.Options, error) {
	format, err := compressor.ParseFormat(c.Compression.Format)
	if err != nil {
		return nil, err
	}
	layout, err := compressor.ParseLayout(c.Compression.Layout)
	if err != nil {
		return nil, err
	}

	b := compressor.NewBuilder().
		MaxWidth(c.Compression.MaxWidth).
		MaxHeight(c.Compression.MaxHeight).
		Format(format).
		Layout(layout).
		Quality(c.Compression.Quality).
		FileNamePrefix(c.Compression.FileNamePrefix).
		MaxFileSize(c.Compression.MaxFileSize)
	if c.Compression.DestinationDir != "" {
		b.DestinationDir(c.Compression.DestinationDir)
	}
	return b.Build()
}

// LoggerConfig returns the logger settings; console output is always on.
func (c *Config) LoggerConfig() logger.LoggerConfig {
	return logger.LoggerConfig{
		Level:      c.Logging.Level,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Compress:   c.Logging.Compress,
		Console:    true,
	}
}

// IsImageExtension reports whether ext is one the watcher picks up.
func (c *Config) IsImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supportedExt := range c.Watch.Extensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}
