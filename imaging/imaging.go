// Package imaging resolves, loads and decodes the images placed by image
// elements.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/url"
	"path"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lvillar/docband/diag"
)

var (
	ErrInvalidImage    = errors.New("imaging: invalid image")
	ErrInvalidSource   = errors.New("imaging: invalid image source")
	ErrUnsupportedType = errors.New("imaging: unsupported image type")
	ErrLoadingFailed   = errors.New("imaging: loading image failed")
)

// MsgKey maps an imaging error to its diagnostic message key.
func MsgKey(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return diag.MsgUnsupportedImageType
	case errors.Is(err, ErrInvalidSource):
		return diag.MsgInvalidImageSource
	case errors.Is(err, ErrLoadingFailed):
		return diag.MsgLoadingImageFailed
	}
	return diag.MsgInvalidImage
}

var dataURI = regexp.MustCompile(`^data:image/([^;,]+);base64,`)

// Source identifies an image before it is loaded. Exactly one of URL and
// Data is set.
type Source struct {
	Key  string
	URL  string
	Data []byte
}

// Empty reports whether the source names no image.
func (s Source) Empty() bool {
	return s.URL == "" && s.Data == nil
}

func supported(typ string) bool {
	switch strings.ToLower(typ) {
	case "png", "jpg", "jpeg":
		return true
	}
	return false
}

// FromDataURI decodes a base64 data URI. Only png and jpeg payloads are
// accepted.
func FromDataURI(s string) (Source, error) {
	m := dataURI.FindStringSubmatch(s)
	if m == nil {
		return Source{}, ErrInvalidImage
	}
	if !supported(m[1]) {
		return Source{}, fmt.Errorf("%w: %s", ErrUnsupportedType, m[1])
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s[len(m[0]):]))
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return FromBytes(data), nil
}

// FromURL validates an http(s) or s3 URL. When the path carries an extension
// it must name a png or jpeg file.
func FromURL(raw string) (Source, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	switch u.Scheme {
	case "http", "https", "s3":
	default:
		return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, raw)
	}
	if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" && !supported(ext) {
		return Source{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	return Source{Key: raw, URL: raw}, nil
}

// FromBytes wraps raw image bytes.
func FromBytes(data []byte) Source {
	sum := sha256.Sum256(data)
	return Source{Key: "sha256:" + hex.EncodeToString(sum[:]), Data: data}
}

// FromValue converts the value of an image or string parameter. A string is
// a data URI or a URL. ok is false for a nil value.
func FromValue(v any) (src Source, ok bool, err error) {
	switch v := v.(type) {
	case nil:
		return Source{}, false, nil
	case string:
		v = strings.TrimSpace(v)
		switch {
		case v == "":
			return Source{}, false, nil
		case strings.HasPrefix(v, "data:"):
			src, err = FromDataURI(v)
		default:
			src, err = FromURL(v)
		}
		return src, err == nil, err
	case []byte:
		if len(v) == 0 {
			return Source{}, false, nil
		}
		return FromBytes(v), true, nil
	}
	return Source{}, false, fmt.Errorf("%w: %T", ErrInvalidSource, v)
}

// Info describes a decoded image.
type Info struct {
	Width      int
	Height     int
	ColorSpace string // DeviceRGB, DeviceGray or DeviceCMYK
	BitDepth   int
	Format     string // png, jpeg, gif, bmp, tiff, webp
}

// Decode reads the image header.
func Decode(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	info := Info{Width: cfg.Width, Height: cfg.Height, ColorSpace: "DeviceRGB", BitDepth: 8, Format: format}
	switch cfg.ColorModel {
	case color.GrayModel:
		info.ColorSpace = "DeviceGray"
	case color.Gray16Model:
		info.ColorSpace, info.BitDepth = "DeviceGray", 16
	case color.CMYKModel:
		info.ColorSpace = "DeviceCMYK"
	case color.RGBA64Model, color.NRGBA64Model:
		info.BitDepth = 16
	}
	return info, nil
}

// Normalize returns png and jpeg data unchanged and converts every other
// decodable format to png.
func Normalize(data []byte) ([]byte, Info, error) {
	info, err := Decode(data)
	if err != nil {
		return nil, Info{}, err
	}
	if info.Format == "png" || info.Format == "jpeg" {
		return data, info, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, Info{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	info.Format = "png"
	return buf.Bytes(), info, nil
}
