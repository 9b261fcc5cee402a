// Package element holds the immutable document element tree of a report:
// the three bands, nested frame and section containers, and the positioned
// elements inside them.
//
// The tree is built once per report definition and shared by every render of
// that definition. Nothing in it depends on the bound data.
package element

import (
	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/style"
)

// Kind is the discriminator of an element.
type Kind string

const (
	KindText      Kind = "text"
	KindLine      Kind = "line"
	KindImage     Kind = "image"
	KindBarCode   Kind = "bar_code"
	KindQRCode    Kind = "qr_code"
	KindTable     Kind = "table"
	KindPageBreak Kind = "page_break"
	KindFrame     Kind = "frame"
	KindSection   Kind = "section"
)

// Spreadsheet holds the placement hints used by the tabular backend.
type Spreadsheet struct {
	Hide        bool
	Column      int // 1-based, 0 means automatic
	Colspan     int
	AddEmptyRow bool
}

// Base is the positional contract shared by all elements. Coordinates are
// points relative to the owning container.
type Base struct {
	ID          string
	Kind        Kind
	X, Y        float64
	Width       float64
	Height      float64
	Style       *style.Style
	PrintIf     *eval.Program // nil prints unconditionally
	RemoveEmpty bool
	SamePage    bool // keep on one page instead of splitting
	Spreadsheet Spreadsheet
}

// Common returns the shared fields.
func (b *Base) Common() *Base { return b }

// Bottom is the design bottom edge.
func (b *Base) Bottom() float64 { return b.Y + b.Height }

// Right is the design right edge.
func (b *Base) Right() float64 { return b.X + b.Width }

// Element is any document element.
type Element interface {
	Common() *Base
}

type Text struct {
	Base
	Content string
	Pattern string
	Link    string
	Eval    *eval.Program // set when the content is an expression
}

type Line struct {
	Base
	Color style.RGBColor
}

type Image struct {
	Base
	Source   string // ${param} reference or literal URL
	Data     string // static base64 data URI
	Filename string
	Link     string
}

// Symbol is a barcode or QR code. Kind tells which.
type Symbol struct {
	Base
	Content      string
	Format       string // CODE128, PDF417 for barcodes
	DisplayValue bool
}

type PageBreak struct {
	Base
}

// Border selects which table rules are drawn.
type Border string

const (
	BorderGrid     Border = "grid"
	BorderFrameRow Border = "frame_row"
	BorderFrame    Border = "frame"
	BorderRow      Border = "row"
	BorderNone     Border = "none"
)

// RowKind tells table header, content and footer rows apart.
type RowKind int

const (
	HeaderRow RowKind = iota
	ContentRow
	FooterRow
)

// Cell is one table cell. Width includes every spanned column.
type Cell struct {
	ID      string
	Content string
	Width   float64
	Colspan int
	Style   *style.Style
	Pattern string
	Link    string
}

// Row is a table row definition.
type Row struct {
	ID         string
	Kind       RowKind
	Height     float64
	PrintIf    *eval.Program
	Background *style.RGBColor
	Cells      []*Cell
}

type Table struct {
	Base
	DataSource   string
	Columns      []float64
	Header       *Row
	ContentRows  []*Row
	Footer       *Row
	Border       Border
	BorderWidth  float64
	BorderColor  style.RGBColor
	RepeatHeader bool
}

// ColumnWidth is the total width of the columns.
func (t *Table) ColumnWidth() float64 {
	var w float64
	for _, c := range t.Columns {
		w += c
	}
	return w
}

// Frame owns a nested container drawn inside an optional border and
// background taken from its style.
type Frame struct {
	Base
	Label     string
	Shrink    bool
	Container *Container
}

// Section repeats its content container once per row of DataSource, between
// an optional header and footer container.
type Section struct {
	Base
	DataSource string
	Header     *Container
	Content    *Container
	Footer     *Container
}

// Container is a coordinate space owning elements sorted by (y, x).
type Container struct {
	ID       string
	Width    float64
	Height   float64
	Visible  bool
	Elements []Element

	// Preds lists, per element, the indexes of the elements that end above
	// it. An element is placed below the rendered bottom of those.
	Preds [][]int
}

// Bands are the three top-level containers.
type Bands struct {
	Header  *Container
	Content *Container
	Footer  *Container
}
