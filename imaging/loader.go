package imaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lvillar/docband/storage"
)

// Image is a loaded image ready for embedding.
type Image struct {
	Key  string
	Data []byte // png or jpeg
	Info Info
}

// Loader loads images through a Fetcher and keeps them for the lifetime of
// one render. It is not safe for concurrent use.
type Loader struct {
	fetcher storage.Fetcher
	logger  *zap.Logger
	cache   map[string]*Image
}

// NewLoader creates a Loader. A nil fetcher rejects URL sources.
func NewLoader(f storage.Fetcher, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fetcher: f, logger: logger, cache: make(map[string]*Image)}
}

// Load returns the image for src, reading and decoding it on first use.
func (l *Loader) Load(ctx context.Context, src Source) (*Image, error) {
	if img, ok := l.cache[src.Key]; ok {
		return img, nil
	}
	data := src.Data
	switch {
	case src.URL != "":
		if l.fetcher == nil {
			return nil, fmt.Errorf("%w: no fetcher for %s", ErrLoadingFailed, src.URL)
		}
		var err error
		if data, err = l.fetcher.Fetch(ctx, src.URL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadingFailed, err)
		}
	}
	data, info, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	img := &Image{Key: src.Key, Data: data, Info: info}
	l.cache[src.Key] = img
	l.logger.Debug("image loaded",
		zap.String("key", src.Key), zap.String("format", info.Format),
		zap.Int("width", info.Width), zap.Int("height", info.Height))
	return img, nil
}

// Len returns the number of cached images.
func (l *Loader) Len() int { return len(l.cache) }
