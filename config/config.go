// Package config loads the settings of the docband commands from a YAML file,
// an optional .env file and DOCBAND_* environment variables, in increasing
// order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lvillar/docband"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/pattern"
	"github.com/lvillar/docband/preview"
	"github.com/lvillar/docband/render/pdf"
	"github.com/lvillar/docband/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCBAND_"

// Config is the command configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Render  RenderConfig  `yaml:"render"`
	Storage StorageConfig `yaml:"storage"`
	Preview PreviewConfig `yaml:"preview"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// FontConfig registers one TrueType font.
type FontConfig struct {
	Family string `yaml:"family"`
	Style  string `yaml:"style"` // "", B, I or BI
	File   string `yaml:"file"`
}

// RenderConfig holds the report defaults.
type RenderConfig struct {
	Locale      string       `yaml:"locale"`
	Currency    string       `yaml:"currency"`
	DotsPerMM   float64      `yaml:"dots_per_mm"`
	MaxPages    int          `yaml:"max_pages"`
	Compression bool         `yaml:"compression"`
	Watermark   string       `yaml:"watermark"`
	Background  string       `yaml:"background"` // PDF file placed behind every page
	Fonts       []FontConfig `yaml:"fonts"`
}

// StorageConfig configures image fetching and output storage.
type StorageConfig struct {
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	MaxFetchBytes int64         `yaml:"max_fetch_bytes"`
	S3            S3Config      `yaml:"s3"`
}

// S3Config enables s3:// locations when Enabled is set.
type S3Config struct {
	Enabled      bool   `yaml:"enabled"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// PreviewConfig bounds the preview store.
type PreviewConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Render: RenderConfig{
			Locale:      pattern.DefaultLocale,
			Currency:    docband.DefaultCurrency,
			DotsPerMM:   12,
			MaxPages:    layout.MaxPages,
			Compression: true,
		},
		Storage: StorageConfig{
			FetchTimeout:  30 * time.Second,
			MaxFetchBytes: storage.DefaultMaxBytes,
		},
		Preview: PreviewConfig{
			TTL:      preview.DefaultTTL,
			MaxBytes: preview.DefaultMaxBytes,
		},
	}
}

// Load reads path when it is not empty, loads .env from the working
// directory when present and applies the environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideWithEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	parse := func(name string, set func(string) error) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
			}
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) (err error) {
			*dst, err = strconv.ParseBool(v)
			return err
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) (err error) {
			*dst, err = time.ParseDuration(v)
			return err
		}
	}
	int64s := func(dst *int64) func(string) error {
		return func(v string) (err error) {
			*dst, err = strconv.ParseInt(v, 10, 64)
			return err
		}
	}

	str("LOG_LEVEL", &cfg.Logging.Level)
	parse("LOG_DEVELOPMENT", boolean(&cfg.Logging.Development))
	str("LOCALE", &cfg.Render.Locale)
	str("CURRENCY", &cfg.Render.Currency)
	parse("DOTS_PER_MM", func(v string) (err error) {
		cfg.Render.DotsPerMM, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("MAX_PAGES", func(v string) (err error) {
		cfg.Render.MaxPages, err = strconv.Atoi(v)
		return err
	})
	parse("COMPRESSION", boolean(&cfg.Render.Compression))
	str("WATERMARK", &cfg.Render.Watermark)
	str("BACKGROUND", &cfg.Render.Background)
	parse("FETCH_TIMEOUT", duration(&cfg.Storage.FetchTimeout))
	parse("MAX_FETCH_BYTES", int64s(&cfg.Storage.MaxFetchBytes))
	parse("S3_ENABLED", boolean(&cfg.Storage.S3.Enabled))
	str("S3_REGION", &cfg.Storage.S3.Region)
	str("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	parse("S3_USE_PATH_STYLE", boolean(&cfg.Storage.S3.UsePathStyle))
	parse("PREVIEW_TTL", duration(&cfg.Preview.TTL))
	parse("PREVIEW_MAX_BYTES", int64s(&cfg.Preview.MaxBytes))
	return errors.Join(errs...)
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: logging.level: %w", err))
	}
	if _, err := pattern.New(c.Render.Locale, c.Render.Currency); err != nil {
		errs = append(errs, fmt.Errorf("config: render: %w", err))
	}
	if c.Render.DotsPerMM <= 0 {
		errs = append(errs, fmt.Errorf("config: render.dots_per_mm must be positive, got %v", c.Render.DotsPerMM))
	}
	if c.Render.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("config: render.max_pages must be positive, got %d", c.Render.MaxPages))
	}
	for i, f := range c.Render.Fonts {
		if f.Family == "" || f.File == "" {
			errs = append(errs, fmt.Errorf("config: render.fonts[%d] needs family and file", i))
		}
	}
	if c.Preview.TTL <= 0 || c.Preview.MaxBytes <= 0 {
		errs = append(errs, errors.New("config: preview ttl and max_bytes must be positive"))
	}
	return errors.Join(errs...)
}

// Logger builds the zap logger.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	// stdout may carry protocol traffic
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// Router builds the storage router, with S3 when enabled.
func (c *Config) Router(ctx context.Context, logger *zap.Logger) (*storage.Router, error) {
	opts := []storage.Option{
		storage.WithLogger(logger),
		storage.WithMaxBytes(c.Storage.MaxFetchBytes),
	}
	if c.Storage.FetchTimeout > 0 {
		opts = append(opts, storage.WithHTTPClient(&http.Client{Timeout: c.Storage.FetchTimeout}))
	}
	if c.Storage.S3.Enabled {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:       c.Storage.S3.Region,
			Endpoint:     c.Storage.S3.Endpoint,
			UsePathStyle: c.Storage.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithObjectStore(store))
	}
	return storage.NewRouter(opts...), nil
}

// PreviewStore builds the preview store.
func (c *Config) PreviewStore(logger *zap.Logger) *preview.Store {
	return preview.New(
		preview.WithTTL(c.Preview.TTL),
		preview.WithMaxBytes(c.Preview.MaxBytes),
		preview.WithLogger(logger),
	)
}

// ReportOptions turns the render settings into report options. The router
// serves as fetcher and sink.
func (c *Config) ReportOptions(logger *zap.Logger, router *storage.Router) ([]docband.Option, error) {
	opts := []docband.Option{
		docband.WithLogger(logger),
		docband.WithLocale(c.Render.Locale),
		docband.WithCurrencySymbol(c.Render.Currency),
		docband.WithDotsPerMM(c.Render.DotsPerMM),
		docband.WithMaxPages(c.Render.MaxPages),
		docband.WithCompression(c.Render.Compression),
	}
	if router != nil {
		opts = append(opts, docband.WithFetcher(router), docband.WithSink(router))
	}
	if c.Render.Watermark != "" {
		opts = append(opts, docband.WithWatermark(pdf.Watermark{Text: c.Render.Watermark}))
	}
	if c.Render.Background != "" {
		data, err := os.ReadFile(c.Render.Background)
		if err != nil {
			return nil, fmt.Errorf("config: background: %w", err)
		}
		opts = append(opts, docband.WithBackgroundPDF(data))
	}
	for _, f := range c.Render.Fonts {
		opts = append(opts, docband.WithFonts(layout.Font{
			Family: strings.ToLower(f.Family), Style: strings.ToUpper(f.Style), File: f.File,
		}))
	}
	return opts, nil
}
