// Package preview keeps rendered outputs in memory for a short time so that
// a client can fetch them by key after requesting a render.
package preview

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTTL      = 3 * time.Minute
	DefaultMaxBytes = 500 << 20
)

var (
	ErrNotFound = errors.New("preview: not found")
	ErrTooLarge = errors.New("preview: output exceeds store capacity")
)

// Entry is one stored output.
type Entry struct {
	Key      string
	Data     []byte
	MIMEType string
	Created  time.Time
}

// Store is a size bounded in-memory store whose entries expire after a TTL.
// When adding an entry would exceed the byte limit, the oldest entries are
// evicted first. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
	entries  map[string]*Entry
	order    []string // oldest first
	size     int64
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long entries are kept.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithMaxBytes bounds the total size of all entries.
func WithMaxBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{
		ttl:      DefaultTTL,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
		logger:   zap.NewNop(),
		entries:  make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores data and returns its key.
func (s *Store) Put(data []byte, mimeType string) (string, error) {
	n := int64(len(data))
	if n > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expire()
	for s.size+n > s.maxBytes && len(s.order) > 0 {
		s.logger.Debug("preview evicted", zap.String("key", s.order[0]))
		s.remove(s.order[0])
	}
	e := &Entry{Key: uuid.NewString(), Data: data, MIMEType: mimeType, Created: s.now()}
	s.entries[e.Key] = e
	s.order = append(s.order, e.Key)
	s.size += n
	s.logger.Debug("preview stored", zap.String("key", e.Key), zap.Int("bytes", len(data)))
	return e.Key, nil
}

// Get returns the entry stored under key.
func (s *Store) Get(key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expire()
	e, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return e, nil
}

// Delete removes the entry stored under key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(key)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()
	return len(s.entries)
}

// Size returns the total bytes of live entries.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()
	return s.size
}

// expire drops entries older than the TTL. order is sorted by creation, so
// it stops at the first live entry.
func (s *Store) expire() {
	cutoff := s.now().Add(-s.ttl)
	for len(s.order) > 0 {
		e := s.entries[s.order[0]]
		if e != nil && e.Created.After(cutoff) {
			return
		}
		s.remove(s.order[0])
	}
}

func (s *Store) remove(key string) {
	if e, ok := s.entries[key]; ok {
		s.size -= int64(len(e.Data))
		delete(s.entries, key)
	}
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
