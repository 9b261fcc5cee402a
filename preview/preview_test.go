package preview

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestPutGet(t *testing.T) {
	s := New()
	key, err := s.Put([]byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	_, err = uuid.Parse(key)
	require.NoError(t, err)

	e, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), e.Data)
	assert.Equal(t, "application/pdf", e.MIMEType)

	s.Delete(key)
	_, err = s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntriesExpire(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(WithClock(c.now))

	old, err := s.Put([]byte("a"), "text/plain")
	require.NoError(t, err)
	c.advance(2 * time.Minute)
	fresh, err := s.Put([]byte("bb"), "text/plain")
	require.NoError(t, err)

	c.advance(time.Minute + time.Second)
	_, err = s.Get(old)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(fresh)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(2), s.Size())
}

func TestOldestEvictedWhenFull(t *testing.T) {
	s := New(WithMaxBytes(10))
	first, err := s.Put(make([]byte, 4), "")
	require.NoError(t, err)
	second, err := s.Put(make([]byte, 4), "")
	require.NoError(t, err)
	third, err := s.Put(make([]byte, 4), "")
	require.NoError(t, err)

	_, err = s.Get(first)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, k := range []string{second, third} {
		_, err = s.Get(k)
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(8), s.Size())

	_, err = s.Put(make([]byte, 11), "")
	assert.ErrorIs(t, err, ErrTooLarge)
}
