package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/preview"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docband.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "en", cfg.Render.Locale)
	assert.Equal(t, "$", cfg.Render.Currency)
	assert.Equal(t, 12.0, cfg.Render.DotsPerMM)
	assert.Equal(t, layout.MaxPages, cfg.Render.MaxPages)
	assert.True(t, cfg.Render.Compression)
	assert.Equal(t, preview.DefaultTTL, cfg.Preview.TTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
render:
  locale: de
  currency: "€"
  dots_per_mm: 8
  compression: false
  fonts:
    - {family: DejaVu, style: b, file: /fonts/DejaVuSans-Bold.ttf}
storage:
  fetch_timeout: 5s
  s3:
    region: eu-west-1
preview:
  ttl: 1m
`)
	t.Setenv("DOCBAND_LOCALE", "fr")
	t.Setenv("DOCBAND_PREVIEW_MAX_BYTES", "1024")
	t.Setenv("DOCBAND_S3_USE_PATH_STYLE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "fr", cfg.Render.Locale)
	assert.Equal(t, "€", cfg.Render.Currency)
	assert.Equal(t, 8.0, cfg.Render.DotsPerMM)
	assert.False(t, cfg.Render.Compression)
	require.Len(t, cfg.Render.Fonts, 1)
	assert.Equal(t, 5*time.Second, cfg.Storage.FetchTimeout)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
	assert.Equal(t, time.Minute, cfg.Preview.TTL)
	assert.Equal(t, int64(1024), cfg.Preview.MaxBytes)

	opts, err := cfg.ReportOptions(nil, nil)
	require.NoError(t, err)
	// logger, locale, currency, dots, pages, compression and one font
	assert.Len(t, opts, 7)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DOCBAND_MAX_PAGES", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "DOCBAND_MAX_PAGES")

	t.Setenv("DOCBAND_MAX_PAGES", "10")
	t.Setenv("DOCBAND_LOCALE", "xx")
	t.Setenv("DOCBAND_LOG_LEVEL", "loud")
	_, err = Load("")
	assert.ErrorContains(t, err, "render")
	assert.ErrorContains(t, err, "logging.level")

	_, err = Load(writeConfig(t, "render: [1, 2"))
	assert.ErrorContains(t, err, "config: parse")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuilders(t *testing.T) {
	cfg := Default()
	cfg.Logging.Development = true
	logger, err := cfg.Logger()
	require.NoError(t, err)

	router, err := cfg.Router(context.Background(), logger)
	require.NoError(t, err)
	require.NotNil(t, router)

	store := cfg.PreviewStore(logger)
	key, err := store.Put([]byte("x"), "text/plain")
	require.NoError(t, err)
	_, err = store.Get(key)
	assert.NoError(t, err)

	cfg.Render.Background = filepath.Join(t.TempDir(), "missing.pdf")
	_, err = cfg.ReportOptions(logger, router)
	assert.ErrorContains(t, err, "background")
}
