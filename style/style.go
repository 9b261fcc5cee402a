// Package style provides the style table referenced by report elements.
package style

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
)

// RGBColor represents an RGB color value.
type RGBColor struct {
	R, G, B int
}

// Hex returns the color as RRGGBB, the form spreadsheet writers expect.
func (c RGBColor) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor parses "#rrggbb" or "#rgb". An empty string yields nil.
func ParseColor(s string) (*RGBColor, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return nil, nil
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("style: invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("style: invalid color %q: %w", s, err)
	}
	return &RGBColor{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
}

// Color parses a color field of a definition object. A malformed value is
// recorded as errorMsgInvalidColor against objectID and field and yields nil.
func Color(raw, objectID, field string, errs *diag.List) *RGBColor {
	c, err := ParseColor(raw)
	if err != nil {
		errs.Add(diag.Error{ObjectID: objectID, Field: field, MsgKey: diag.MsgInvalidColor, Context: raw, Info: err.Error()})
		return nil
	}
	return c
}

// Padding defines spacing inside an element box.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Border defines which edges of an element box are stroked.
type Border struct {
	Left, Top, Right, Bottom bool
	Width                    float64
	Color                    RGBColor
}

// Any reports whether at least one edge is stroked.
func (b Border) Any() bool {
	return b.Left || b.Top || b.Right || b.Bottom
}

// All reports whether every edge is stroked.
func (b Border) All() bool {
	return b.Left && b.Top && b.Right && b.Bottom
}

// Horizontal alignment values.
const (
	AlignLeft    = "left"
	AlignCenter  = "center"
	AlignRight   = "right"
	AlignJustify = "justify"
)

// Vertical alignment values.
const (
	AlignTop    = "top"
	AlignMiddle = "middle"
	AlignBottom = "bottom"
)

// Style is the resolved visual style of an element or table cell.
type Style struct {
	ID   string
	Name string

	Font          string
	FontSize      float64
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	LineSpacing   float64

	HAlign string
	VAlign string

	TextColor       RGBColor
	BackgroundColor *RGBColor

	Border  Border
	Padding Padding
	Pattern string
}

// Default returns the style used when an element names none.
func Default() *Style {
	return &Style{
		Font:        "helvetica",
		FontSize:    12,
		LineSpacing: 1,
		HAlign:      AlignLeft,
		VAlign:      AlignTop,
		Border:      Border{Width: 1},
		Padding:     Padding{Top: 2, Right: 2, Bottom: 2, Left: 2},
	}
}

// FromDefinition converts a definition style, filling unset values from
// Default. Malformed colors are recorded against objectID.
func FromDefinition(d definition.Style, objectID string, errs *diag.List) *Style {
	s := Default()
	s.ID = d.ID.String()
	s.Name = d.Name
	if d.Font != "" {
		s.Font = strings.ToLower(d.Font)
	}
	if d.FontSize > 0 {
		s.FontSize = d.FontSize.Float()
	}
	if d.LineSpacing > 0 {
		s.LineSpacing = d.LineSpacing.Float()
	}
	s.Bold = d.Bold
	s.Italic = d.Italic
	s.Underline = d.Underline
	s.Strikethrough = d.Strikethrough
	if d.HorizontalAlignment != "" {
		s.HAlign = d.HorizontalAlignment
	}
	if d.VerticalAlignment != "" {
		s.VAlign = d.VerticalAlignment
	}
	if c := Color(d.TextColor, objectID, "textColor", errs); c != nil {
		s.TextColor = *c
	}
	s.BackgroundColor = Color(d.BackgroundColor, objectID, "backgroundColor", errs)
	s.Border.Left = d.BorderAll || d.BorderLeft
	s.Border.Top = d.BorderAll || d.BorderTop
	s.Border.Right = d.BorderAll || d.BorderRight
	s.Border.Bottom = d.BorderAll || d.BorderBottom
	if d.BorderWidth > 0 {
		s.Border.Width = d.BorderWidth.Float()
	}
	if c := Color(d.BorderColor, objectID, "borderColor", errs); c != nil {
		s.Border.Color = *c
	}
	if d.PaddingLeft > 0 || d.PaddingTop > 0 || d.PaddingRight > 0 || d.PaddingBottom > 0 {
		s.Padding = Padding{
			Top:    d.PaddingTop.Float(),
			Right:  d.PaddingRight.Float(),
			Bottom: d.PaddingBottom.Float(),
			Left:   d.PaddingLeft.Float(),
		}
	}
	s.Pattern = d.Pattern
	return s
}

// FontStyle returns the style string understood by gofpdf.SetFont.
func (s *Style) FontStyle() string {
	var b strings.Builder
	if s.Bold {
		b.WriteByte('B')
	}
	if s.Italic {
		b.WriteByte('I')
	}
	if s.Underline {
		b.WriteByte('U')
	}
	if s.Strikethrough {
		b.WriteByte('S')
	}
	return b.String()
}

// LineHeight is the height of one line of text.
func (s *Style) LineHeight() float64 {
	return s.FontSize * s.LineSpacing
}

// AlignCode maps the horizontal alignment to the one-letter code used by
// gofpdf CellFormat.
func (s *Style) AlignCode() string {
	switch s.HAlign {
	case AlignCenter:
		return "C"
	case AlignRight:
		return "R"
	case AlignJustify:
		return "J"
	}
	return "L"
}

// Table is the style table of a report, indexed by id.
type Table struct {
	byID map[string]*Style
}

// NewTable builds the style table, recording malformed styles in errs.
func NewTable(defs []definition.Style, errs *diag.List) *Table {
	t := &Table{byID: make(map[string]*Style, len(defs))}
	for _, d := range defs {
		s := FromDefinition(d, d.ID.String(), errs)
		t.byID[s.ID] = s
	}
	return t
}

// Get returns the style with the given id.
func (t *Table) Get(id string) (*Style, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// Len returns the number of styles.
func (t *Table) Len() int { return len(t.byID) }

// Resolve returns the style for an element. A referenced id that does not
// exist is recorded as errorMsgInvalidStyle against objectID and the default
// style is used instead. Without an id the inline style applies, if any.
func (t *Table) Resolve(id definition.ID, inline *definition.Style, objectID string, errs *diag.List) *Style {
	if id != "" {
		if s, ok := t.byID[id.String()]; ok {
			return s
		}
		errs.Addf(objectID, "styleId", diag.MsgInvalidStyle, id.String())
		return Default()
	}
	if inline != nil {
		return FromDefinition(*inline, objectID, errs)
	}
	return Default()
}
