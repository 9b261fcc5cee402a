// Package page resolves document properties: page geometry in points,
// margins and the header/footer band policy.
package page

import (
	"math"
	"strings"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
)

// ObjectID identifies the document properties in diagnostics.
const ObjectID = "0_document_properties"

// Display is the display policy of the header or footer band.
type Display string

const (
	Always         Display = "always"
	Never          Display = "never"
	NotOnFirstPage Display = "not_on_first_page"
)

// Shown reports whether a band with this policy appears on page (1-based).
func (d Display) Shown(page int) bool {
	switch d {
	case Always:
		return true
	case NotOnFirstPage:
		return page != 1
	}
	return false
}

// Orientation of the page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Unit of a user defined page size.
type Unit string

const (
	Millimeter Unit = "mm"
	Inch       Unit = "inch"
)

type format struct {
	width, height float64
	unit          Unit
}

var formats = map[string]format{
	"a3":     {297, 420, Millimeter},
	"a4":     {210, 297, Millimeter},
	"a5":     {148, 210, Millimeter},
	"letter": {8.5, 11, Inch},
	"legal":  {8.5, 14, Inch},
}

// Properties are the resolved document properties. All lengths are points.
type Properties struct {
	Width       float64
	Height      float64
	Orientation Orientation

	MarginLeft   float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64

	// ContentHeight is the height of the content band as designed.
	ContentHeight float64

	HeaderDisplay Display
	HeaderSize    float64
	FooterDisplay Display
	FooterSize    float64

	Locale   string
	Currency string
}

// New resolves definition properties. Invalid custom page sizes are recorded
// in errs and replaced by A4 so that layout can still proceed.
func New(d definition.DocumentProperties, errs *diag.List) *Properties {
	p := &Properties{
		Orientation:  Portrait,
		MarginLeft:   d.MarginLeft.Float(),
		MarginTop:    d.MarginTop.Float(),
		MarginRight:  d.MarginRight.Float(),
		MarginBottom: d.MarginBottom.Float(),
		Locale:       d.PatternLocale,
		Currency:     d.PatternCurrencySymbol,
	}
	if Orientation(d.Orientation) == Landscape {
		p.Orientation = Landscape
	}

	name := strings.ToLower(d.PageFormat)
	if name == "" {
		name = "a4"
	}
	f, ok := formats[name]
	if ok {
		if p.Orientation == Landscape {
			f.width, f.height = f.height, f.width
		}
	} else {
		f = format{width: d.PageWidth.Float(), height: d.PageHeight.Float(), unit: Unit(strings.ToLower(d.Unit))}
		if !validSize(f) {
			errs.Addf(ObjectID, "page", diag.MsgInvalidPageSize, name)
			f = formats["a4"]
		}
	}
	p.Width, p.Height = toPoints(f.width, f.unit), toPoints(f.height, f.unit)

	p.HeaderDisplay, p.FooterDisplay = Never, Never
	if d.Header {
		p.HeaderDisplay = parseDisplay(d.HeaderDisplay)
		p.HeaderSize = d.HeaderSize.Float()
	}
	if d.Footer {
		p.FooterDisplay = parseDisplay(d.FooterDisplay)
		p.FooterSize = d.FooterSize.Float()
	}

	p.ContentHeight = d.ContentHeight.Float()
	if p.ContentHeight == 0 {
		p.ContentHeight = p.Height - p.HeaderSize - p.FooterSize - p.MarginTop - p.MarginBottom
	}
	return p
}

func parseDisplay(s string) Display {
	switch Display(s) {
	case Never:
		return Never
	case NotOnFirstPage:
		return NotOnFirstPage
	}
	return Always
}

func validSize(f format) bool {
	lo, hi := 0.0, 0.0
	switch f.unit {
	case Millimeter:
		lo, hi = 30, 100000
	case Inch:
		lo, hi = 1, 1000
	default:
		return false
	}
	return f.width >= lo && f.width < hi && f.height >= lo && f.height < hi
}

func toPoints(v float64, u Unit) float64 {
	if u == Inch {
		return math.Round(72 * v)
	}
	return math.Round(72 * v / 25.4)
}

// ContentWidth is the printable width between the side margins.
func (p *Properties) ContentWidth() float64 {
	return p.Width - p.MarginLeft - p.MarginRight
}

// ShowHeader reports whether the header band is rendered on page (1-based).
func (p *Properties) ShowHeader(page int) bool {
	return p.HeaderDisplay.Shown(page)
}

// ShowFooter reports whether the footer band is rendered on page (1-based).
func (p *Properties) ShowFooter(page int) bool {
	return p.FooterDisplay.Shown(page)
}

// AvailableHeight is the height left for content on page: the page height
// minus the vertical margins, minus the header and footer sizes when those
// bands are shown on that page.
func (p *Properties) AvailableHeight(page int) float64 {
	h := p.Height - p.MarginTop - p.MarginBottom
	if p.ShowHeader(page) {
		h -= p.HeaderSize
	}
	if p.ShowFooter(page) {
		h -= p.FooterSize
	}
	return h
}

// ContentTop is the y offset of the content band on page.
func (p *Properties) ContentTop(page int) float64 {
	y := p.MarginTop
	if p.ShowHeader(page) {
		y += p.HeaderSize
	}
	return y
}

// FooterTop is the y offset of the footer band.
func (p *Properties) FooterTop() float64 {
	return p.Height - p.FooterSize - p.MarginBottom
}
