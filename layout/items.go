package layout

import (
	"github.com/lvillar/docband/element"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/style"
)

// Box is a rectangle in points.
type Box struct {
	X, Y, W, H float64
}

// Bottom returns the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.H }

// Item is one laid-out element. Coordinates are relative to the container
// it was laid out in until the engine places it on a page.
type Item interface {
	Bounds() Box
	Shift(dx, dy float64)
}

// Placed carries what every item shares.
type Placed struct {
	Box
	ElementID   string
	Style       *style.Style
	Spreadsheet element.Spreadsheet
}

func (p *Placed) Bounds() Box { return p.Box }

func (p *Placed) Shift(dx, dy float64) {
	p.X += dx
	p.Y += dy
}

// Text is a block of wrapped lines. Value is the typed value behind the
// text when it consists of a single reference or expression, so tabular
// output can keep numbers and dates native.
type Text struct {
	Placed
	Lines   []string
	Link    string
	Value   any
	Pattern string
	// Continued is set on every slice of a split text except the first.
	Continued bool
}

// Line is a horizontal rule filling its box.
type Line struct {
	Placed
	Color style.RGBColor
}

type Image struct {
	Placed
	Source imaging.Source
	Link   string
}

// Symbol is a barcode or QR code.
type Symbol struct {
	Placed
	Kind         element.Kind
	Format       string
	Content      string
	DisplayValue bool
}

// TableCell is positioned relative to its row.
type TableCell struct {
	X       float64
	Width   float64
	Colspan int
	Lines   []string
	Text    string
	Value   any
	Pattern string
	Link    string
	Style   *style.Style
}

// TableRow is positioned relative to its table.
type TableRow struct {
	Kind       element.RowKind
	Y          float64
	Height     float64
	Background *style.RGBColor
	Cells      []*TableCell
}

// Rule is a border stroke relative to its table.
type Rule struct {
	X1, Y1, X2, Y2 float64
}

// Table is the slice of a table that landed on one page.
type Table struct {
	Placed
	Columns     []float64
	Rows        []*TableRow
	HRules      []Rule
	VRules      []Rule
	BorderWidth float64
	BorderColor style.RGBColor
}

// Frame is a bordered box around nested items positioned relative to it.
type Frame struct {
	Placed
	Items []Item
}

func shiftAll(items []Item, dx, dy float64) {
	for _, it := range items {
		it.Shift(dx, dy)
	}
}
