// Package storage reads image resources from URLs and writes rendered
// outputs to files or object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnsupportedScheme is returned for a location that is neither an
	// http(s) URL, an s3:// URL nor, for sinks, a file path.
	ErrUnsupportedScheme = errors.New("storage: unsupported location")
	// ErrTooLarge is returned when a fetched object exceeds the size limit.
	ErrTooLarge = errors.New("storage: object too large")
	// ErrNoObjectStore is returned for s3:// locations when no object store
	// was configured.
	ErrNoObjectStore = errors.New("storage: no object store configured")
)

// DefaultMaxBytes bounds a single fetched object.
const DefaultMaxBytes = 32 << 20

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Sink stores a rendered output at dest.
type Sink interface {
	Write(ctx context.Context, dest string, data []byte) error
}

// ObjectStore is the object storage collaborator.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Router fetches http(s) URLs over HTTP and s3:// URLs from the object
// store, and writes to s3:// URLs or local file paths.
type Router struct {
	client   *http.Client
	store    ObjectStore
	maxBytes int64
	logger   *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Router) { r.client = c }
}

// WithObjectStore enables s3:// locations.
func WithObjectStore(s ObjectStore) Option {
	return func(r *Router) { r.store = s }
}

// WithMaxBytes sets the per object size limit.
func WithMaxBytes(n int64) Option {
	return func(r *Router) { r.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates a Router.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return r.fetchHTTP(ctx, rawURL)
	case "s3":
		if r.store == nil {
			return nil, ErrNoObjectStore
		}
		rc, err := r.store.Download(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, fmt.Errorf("storage: download %s: %w", rawURL, err)
		}
		defer rc.Close()
		return r.readAll(rc)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
}

func (r *Router) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: request %s: %w", rawURL, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage: get %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := r.readAll(resp.Body)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("fetched", zap.String("url", rawURL), zap.Int("bytes", len(data)))
	return data, nil
}

func (r *Router) readAll(rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Write implements Sink. dest is an s3://bucket/key URL or a file path.
func (r *Router) Write(ctx context.Context, dest string, data []byte) error {
	if bucket, key, ok := ParseS3(dest); ok {
		if r.store == nil {
			return ErrNoObjectStore
		}
		if err := r.store.Upload(ctx, bucket, key, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("storage: upload %s: %w", dest, err)
		}
		r.logger.Info("uploaded", zap.String("dest", dest), zap.Int("bytes", len(data)))
		return nil
	}
	if strings.Contains(dest, "://") {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, dest)
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", dest, err)
	}
	r.logger.Info("written", zap.String("dest", dest), zap.Int("bytes", len(data)))
	return nil
}

// ParseS3 splits an s3://bucket/key URL.
func ParseS3(loc string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(loc, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
