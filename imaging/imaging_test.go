package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docband/diag"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type countingFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *countingFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestFromDataURI(t *testing.T) {
	data := pngBytes(t, 2, 3)
	src, err := FromDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assert.Equal(t, data, src.Data)
	assert.True(t, strings.HasPrefix(src.Key, "sha256:"))

	_, err = FromDataURI("data:image/gif;base64,R0lGOD==")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromDataURI("iVBORw0KGgo=")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestFromURL(t *testing.T) {
	_, err := FromURL("https://cdn.example.com/logo.PNG")
	assert.NoError(t, err)
	_, err = FromURL("https://cdn.example.com/render?id=7")
	assert.NoError(t, err, "no extension is accepted")
	_, err = FromURL("s3://assets/logo.jpg")
	assert.NoError(t, err)

	_, err = FromURL("https://cdn.example.com/logo.svg")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = FromURL("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestFromValue(t *testing.T) {
	_, ok, err := FromValue(nil)
	assert.False(t, ok)
	assert.NoError(t, err)

	src, ok, err := FromValue([]byte{1, 2})
	assert.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, src.Data)

	// readers are snapshotted by the binder and never reach a source
	_, _, err = FromValue(bytes.NewReader([]byte{3}))
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, _, err = FromValue(42)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestDecodeAndNormalize(t *testing.T) {
	info, err := Decode(pngBytes(t, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, Info{Width: 4, Height: 5, ColorSpace: "DeviceRGB", BitDepth: 8, Format: "png"}, info)

	pal := image.NewPaletted(image.Rect(0, 0, 3, 2), color.Palette{color.White, color.Black})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, pal, nil))

	data, info, err := Normalize(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	again, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "png", again.Format)
	assert.Equal(t, 3, again.Width)

	_, err = Decode([]byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestLoaderCachesPerKey(t *testing.T) {
	f := &countingFetcher{data: pngBytes(t, 1, 1)}
	l := NewLoader(f, nil)
	src, err := FromURL("https://cdn.example.com/a.png")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		img, err := l.Load(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, 1, img.Info.Width)
	}
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, l.Len())
}

func TestLoaderFailures(t *testing.T) {
	src, _ := FromURL("https://cdn.example.com/a.png")

	_, err := NewLoader(&countingFetcher{err: errors.New("boom")}, nil).Load(context.Background(), src)
	assert.ErrorIs(t, err, ErrLoadingFailed)
	assert.Equal(t, diag.MsgLoadingImageFailed, MsgKey(err))

	_, err = NewLoader(nil, nil).Load(context.Background(), src)
	assert.ErrorIs(t, err, ErrLoadingFailed)

	_, err = NewLoader(nil, nil).Load(context.Background(), FromBytes([]byte("junk")))
	assert.Equal(t, diag.MsgInvalidImage, MsgKey(err))
}
