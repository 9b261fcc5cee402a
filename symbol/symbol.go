// Package symbol renders barcode and QR code content as PNG images.
package symbol

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
)

// Formats.
const (
	Code128 = "CODE128"
	QR      = "QR"
	PDF417  = "PDF417"
)

var (
	ErrEmptyContent      = errors.New("symbol: empty content")
	ErrUnsupportedFormat = errors.New("symbol: unsupported format")
)

// Encode creates the symbol for content without scaling it.
func Encode(format, content string) (barcode.Barcode, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	switch strings.ToUpper(format) {
	case Code128, "":
		bc, err := code128.Encode(content)
		if err != nil {
			return nil, fmt.Errorf("symbol: code128: %w", err)
		}
		return bc, nil
	case QR:
		bc, err := qr.Encode(content, qr.M, qr.Auto)
		if err != nil {
			return nil, fmt.Errorf("symbol: qr: %w", err)
		}
		return bc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Validate reports whether content can be encoded in format. PDF417 content
// is accepted as is.
func Validate(format, content string) error {
	if strings.EqualFold(format, PDF417) {
		if content == "" {
			return ErrEmptyContent
		}
		return nil
	}
	_, err := Encode(format, content)
	return err
}

// PNG encodes content and scales it to w x h pixels.
func PNG(format, content string, w, h int) ([]byte, error) {
	bc, err := Encode(format, content)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(bc, max(w, bc.Bounds().Dx()), max(h, bc.Bounds().Dy()))
	if err != nil {
		return nil, fmt.Errorf("symbol: scale: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("symbol: png: %w", err)
	}
	return buf.Bytes(), nil
}
