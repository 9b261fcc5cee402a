// Package xlsx writes the bands of a report as one worksheet.
//
// Every band is laid out once without page breaks. Items sharing a top edge
// become one spreadsheet row, ordered by their left edge, each taking the
// next free column unless its spreadsheet column is set. Tables and frames
// occupy as many rows as they hold.
package xlsx

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/page"
	"github.com/lvillar/docband/render"
	"github.com/lvillar/docband/style"
	"github.com/lvillar/docband/symbol"
)

// Column widths are given in points and stored in characters.
const pointsPerChar = 7

// Renderer is the spreadsheet backend.
type Renderer struct {
	newWorkbook func() Workbook
	currency    string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWorkbook replaces the excelize workbook.
func WithWorkbook(fn func() Workbook) Option {
	return func(r *Renderer) { r.newWorkbook = fn }
}

// WithCurrency sets the symbol substituted for the currency placeholder of
// number patterns.
func WithCurrency(c string) Option {
	return func(r *Renderer) { r.currency = c }
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{newWorkbook: func() Workbook { return NewExcelizeWorkbook() }}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements render.Renderer. It needs job.Bands.
func (r *Renderer) Render(ctx context.Context, job *render.Job) ([]byte, error) {
	if job == nil || job.Bands == nil {
		return nil, render.ErrNoDocument
	}
	images := job.Images
	if images == nil {
		images = imaging.NewLoader(nil, job.Log())
	}
	w := &writer{
		ctx:      ctx,
		wb:       r.newWorkbook(),
		images:   images,
		currency: r.currency,
		widths:   make(map[int]float64),
	}

	header, footer := true, true
	if p := job.Properties; p != nil {
		header, footer = p.HeaderDisplay != page.Never, p.FooterDisplay != page.Never
	}
	if header {
		if err := w.band(job.Bands.Header); err != nil {
			return nil, err
		}
	}
	if err := w.band(job.Bands.Content); err != nil {
		return nil, err
	}
	if footer {
		if err := w.band(job.Bands.Footer); err != nil {
			return nil, err
		}
	}

	cols := make([]int, 0, len(w.widths))
	for col := range w.widths {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	for _, col := range cols {
		if width := w.widths[col]; width > 0 {
			if err := w.wb.SetColumnWidth(col, width/pointsPerChar); err != nil {
				return nil, err
			}
		}
	}
	out, err := w.wb.Bytes()
	if err != nil {
		return nil, err
	}
	job.Log().Debug("xlsx rendered", zap.Int("rows", w.row), zap.Int("bytes", len(out)))
	return out, nil
}

type writer struct {
	ctx      context.Context
	wb       Workbook
	images   *imaging.Loader
	currency string
	widths   map[int]float64
	row      int
}

func (w *writer) band(items []layout.Item) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	n, err := w.block(items, w.row, 0)
	w.row += n
	return err
}

// block writes items starting at row and col and returns the number of rows
// used.
func (w *writer) block(items []layout.Item, row, col int) (int, error) {
	used := 0
	for _, line := range rows(items) {
		c := col
		height, empty := 0, false
		for _, it := range line {
			p := placed(it)
			if p == nil || p.Spreadsheet.Hide {
				continue
			}
			if p.Spreadsheet.Column > 0 {
				c = col + p.Spreadsheet.Column - 1
			}
			span := max(1, p.Spreadsheet.Colspan)
			n, err := w.item(it, row+used, c, span)
			if err != nil {
				return used, err
			}
			if span == 1 && n > 0 {
				w.width(c, p.W)
			}
			height = max(height, n)
			empty = empty || p.Spreadsheet.AddEmptyRow
			c += span
		}
		used += height
		if empty {
			used++
		}
	}
	return used, nil
}

// rows groups items by top edge.
func rows(items []layout.Item) [][]layout.Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b layout.Item) int {
		ba, bb := a.Bounds(), b.Bounds()
		if ba.Y != bb.Y {
			return cmpFloat(ba.Y, bb.Y)
		}
		return cmpFloat(ba.X, bb.X)
	})
	var out [][]layout.Item
	for i, it := range sorted {
		if i == 0 || it.Bounds().Y != sorted[i-1].Bounds().Y {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], it)
	}
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func placed(it layout.Item) *layout.Placed {
	switch v := it.(type) {
	case *layout.Text:
		return &v.Placed
	case *layout.Line:
		return &v.Placed
	case *layout.Image:
		return &v.Placed
	case *layout.Symbol:
		return &v.Placed
	case *layout.Table:
		return &v.Placed
	case *layout.Frame:
		return &v.Placed
	}
	return nil
}

func (w *writer) width(col int, pts float64) {
	w.widths[col] = max(w.widths[col], pts)
}

// item writes one item and returns the number of rows it occupies.
func (w *writer) item(it layout.Item, row, col, span int) (int, error) {
	switch v := it.(type) {
	case *layout.Text:
		value, numFmt := w.value(v.Value, strings.Join(render.Lines(v.Lines, 1, 1), "\n"), v.Pattern)
		fm := format(v.Style)
		fm.NumFmt = numFmt
		return 1, w.write(Cell{Row: row, Col: col, Value: value, Format: fm, URL: v.Link}, span)
	case *layout.Table:
		return w.table(v, row, col)
	case *layout.Image:
		return w.image(v, row, col)
	case *layout.Symbol:
		return w.symbol(v, row, col, span)
	case *layout.Frame:
		n, err := w.block(v.Items, row, col)
		return max(n, 1), err
	}
	return 0, nil
}

func (w *writer) write(c Cell, span int) error {
	if err := w.wb.WriteCell(c); err != nil {
		return err
	}
	if span > 1 {
		return w.wb.Merge(c.Row, c.Col, span)
	}
	return nil
}

// value keeps numbers, dates and booleans native. Everything else is
// written as its formatted text.
func (w *writer) value(v any, text, pattern string) (any, string) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64(), NumberFormat(pattern, w.currency)
	case *decimal.Decimal:
		if x != nil {
			return x.InexactFloat64(), NumberFormat(pattern, w.currency)
		}
	case time.Time:
		return x, DateFormat(pattern)
	case bool:
		return x, ""
	}
	return text, ""
}

func (w *writer) table(t *layout.Table, row, col int) (int, error) {
	bordered := t.BorderWidth > 0 && (len(t.HRules) > 0 || len(t.VRules) > 0)
	for i, r := range t.Rows {
		c := col
		for _, cell := range r.Cells {
			span := max(1, cell.Colspan)
			fm := format(cell.Style)
			if fm.Fill == "" && r.Background != nil {
				fm.Fill = r.Background.Hex()
			}
			fm.Border = fm.Border || bordered
			value, numFmt := w.value(cell.Value, cell.Text, cell.Pattern)
			fm.NumFmt = numFmt
			if err := w.write(Cell{Row: row + i, Col: c, Value: value, Format: fm, URL: cell.Link}, span); err != nil {
				return i, err
			}
			if span == 1 {
				w.width(c, cell.Width)
			}
			c += span
		}
	}
	return len(t.Rows), nil
}

func (w *writer) image(im *layout.Image, row, col int) (int, error) {
	if im.Source.Empty() {
		return 1, nil
	}
	img, err := w.images.Load(w.ctx, im.Source)
	if err != nil {
		return 0, diag.Fatalw(im.ElementID, "source", imaging.MsgKey(err), err)
	}
	ext := ".png"
	if img.Info.Format == "jpeg" {
		ext = ".jpg"
	}
	if err := w.wb.InsertImage(row, col, img.Data, ext, im.Link); err != nil {
		return 0, diag.Fatalw(im.ElementID, "source", diag.MsgInvalidImage, err)
	}
	return 1, nil
}

func (w *writer) symbol(s *layout.Symbol, row, col, span int) (int, error) {
	if s.Content == "" {
		return 1, nil
	}
	if strings.EqualFold(s.Format, symbol.PDF417) {
		return 1, w.write(Cell{Row: row, Col: col, Value: s.Content, Format: format(s.Style)}, span)
	}
	data, err := symbol.PNG(s.Format, s.Content, int(s.W), int(s.H))
	if err != nil {
		return 0, diag.Fatalw(s.ElementID, "content", diag.MsgInvalidBarCode, err)
	}
	if err := w.wb.InsertImage(row, col, data, ".png", ""); err != nil {
		return 0, diag.Fatalw(s.ElementID, "content", diag.MsgInvalidBarCode, err)
	}
	return 1, nil
}

func format(st *style.Style) Format {
	if st == nil {
		st = style.Default()
	}
	fm := Format{
		Font:      st.Font,
		Size:      st.FontSize,
		Bold:      st.Bold,
		Italic:    st.Italic,
		Underline: st.Underline,
		Strike:    st.Strikethrough,
		Color:     st.TextColor.Hex(),
		HAlign:    st.HAlign,
		VAlign:    st.VAlign,
		Border:    st.Border.Any(),
	}
	if fm.VAlign == style.AlignMiddle {
		fm.VAlign = "center"
	}
	if st.BackgroundColor != nil {
		fm.Fill = st.BackgroundColor.Hex()
	}
	return fm
}

// NumberFormat turns a number pattern into a spreadsheet number format.
// The currency placeholders become the quoted currency symbol.
func NumberFormat(pattern, currency string) string {
	if pattern == "" {
		return ""
	}
	quoted := `"` + strings.ReplaceAll(currency, `"`, "") + `"`
	return strings.NewReplacer("$", quoted, "¤", quoted).Replace(pattern)
}

// DateFormat turns a date pattern into a spreadsheet date format. An empty
// pattern gives an ISO date.
func DateFormat(pattern string) string {
	if pattern == "" {
		return "yyyy-mm-dd"
	}
	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		c := runes[i]
		if c == '\'' {
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				j++
			}
			if j == i+1 {
				b.WriteString(`\'`)
			} else {
				b.WriteString(`"` + string(runes[i+1:j]) + `"`)
			}
			i = j + 1
			continue
		}
		n := 1
		for i+n < len(runes) && runes[i+n] == c {
			n++
		}
		switch c {
		case 'M', 'L':
			b.WriteString(strings.Repeat("m", n))
		case 'H':
			b.WriteString(strings.Repeat("h", n))
		case 'E':
			if n >= 4 {
				b.WriteString("dddd")
			} else {
				b.WriteString("ddd")
			}
		case 'a':
			b.WriteString("AM/PM")
		default:
			b.WriteString(strings.Repeat(string(c), n))
		}
		i += n
	}
	return b.String()
}
