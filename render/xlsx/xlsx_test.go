package xlsx

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/element"
	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/page"
	"github.com/lvillar/docband/render"
	"github.com/lvillar/docband/style"
)

type merge struct{ row, col, span int }

type fakeWorkbook struct {
	cells  []Cell
	merges []merge
	images []string
	widths map[int]float64
}

func (f *fakeWorkbook) WriteCell(c Cell) error {
	f.cells = append(f.cells, c)
	return nil
}

func (f *fakeWorkbook) Merge(row, col, span int) error {
	f.merges = append(f.merges, merge{row, col, span})
	return nil
}

func (f *fakeWorkbook) InsertImage(row, col int, _ []byte, ext, _ string) error {
	f.images = append(f.images, excelCell(row, col)+ext)
	return nil
}

func (f *fakeWorkbook) SetColumnWidth(col int, width float64) error {
	if f.widths == nil {
		f.widths = make(map[int]float64)
	}
	f.widths[col] = width
	return nil
}

func (f *fakeWorkbook) Bytes() ([]byte, error) { return []byte("xlsx"), nil }

func (f *fakeWorkbook) at(row, col int) (Cell, bool) {
	for _, c := range f.cells {
		if c.Row == row && c.Col == col {
			return c, true
		}
	}
	return Cell{}, false
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func excelCell(row, col int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row+1)
	return name
}

func text(id string, x, y, w float64, s string) *layout.Text {
	return &layout.Text{
		Placed: layout.Placed{Box: layout.Box{X: x, Y: y, W: w, H: 20}, ElementID: id, Style: style.Default()},
		Lines:  []string{s},
	}
}

func properties(t *testing.T, header, footer string) *page.Properties {
	t.Helper()
	var errs diag.List
	props := page.New(definition.DocumentProperties{
		PageFormat: "A4", Header: true, HeaderDisplay: header, Footer: true, FooterDisplay: footer,
	}, &errs)
	require.Equal(t, 0, errs.Len())
	return props
}

func renderFake(t *testing.T, job *render.Job) *fakeWorkbook {
	t.Helper()
	wb := &fakeWorkbook{}
	out, err := New(WithWorkbook(func() Workbook { return wb }), WithCurrency("€")).Render(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), out)
	return wb
}

func TestRenderWritesBandsInOrder(t *testing.T) {
	amount := text("amount", 120, 0, 80, "1,234.50")
	amount.Value, amount.Pattern = decimal.RequireFromString("1234.5"), "#,##0.00 $"
	wide := text("wide", 0, 40, 300, "spans")
	wide.Spreadsheet.Colspan = 3
	skipped := text("hidden", 0, 60, 50, "no")
	skipped.Spreadsheet.Hide = true
	moved := text("moved", 0, 80, 40, "fourth")
	moved.Spreadsheet.Column = 4
	moved.Spreadsheet.AddEmptyRow = true

	job := &render.Job{
		Properties: properties(t, "always", "always"),
		Bands: &render.Bands{
			Header:  []layout.Item{text("title", 0, 0, 100, "Title")},
			Content: []layout.Item{amount, text("label", 0, 0, 70, "Total"), wide, skipped, moved},
			Footer:  []layout.Item{text("foot", 0, 0, 140, "Page "+eval.PageNumberToken)},
		},
	}
	wb := renderFake(t, job)

	title, ok := wb.at(0, 0)
	require.True(t, ok)
	assert.Equal(t, "Title", title.Value)

	label, _ := wb.at(1, 0)
	assert.Equal(t, "Total", label.Value)
	total, ok := wb.at(1, 1)
	require.True(t, ok)
	assert.Equal(t, 1234.5, total.Value)
	assert.Equal(t, `#,##0.00 "€"`, total.Format.NumFmt)

	span, _ := wb.at(2, 0)
	assert.Equal(t, "spans", span.Value)
	assert.Equal(t, []merge{{2, 0, 3}}, wb.merges)

	fourth, ok := wb.at(3, 3)
	require.True(t, ok)
	assert.Equal(t, "fourth", fourth.Value)

	// the empty row after "fourth" pushes the footer down
	foot, ok := wb.at(5, 0)
	require.True(t, ok)
	assert.Equal(t, "Page 1", foot.Value)
	assert.Len(t, wb.cells, 6)

	assert.InDelta(t, 140.0/7, wb.widths[0], 1e-9)
	assert.InDelta(t, 80.0/7, wb.widths[1], 1e-9)
	assert.InDelta(t, 40.0/7, wb.widths[3], 1e-9)
	assert.NotContains(t, wb.widths, 2)
}

func TestRenderSkipsHiddenBands(t *testing.T) {
	job := &render.Job{
		Properties: properties(t, "never", "never"),
		Bands: &render.Bands{
			Header:  []layout.Item{text("h", 0, 0, 10, "header")},
			Content: []layout.Item{text("c", 0, 0, 10, "content")},
			Footer:  []layout.Item{text("f", 0, 0, 10, "footer")},
		},
	}
	wb := renderFake(t, job)
	require.Len(t, wb.cells, 1)
	assert.Equal(t, "content", wb.cells[0].Value)
	assert.Equal(t, 0, wb.cells[0].Row)
}

func TestRenderTableAndFrame(t *testing.T) {
	shade := &style.RGBColor{R: 0xEE, G: 0xEE, B: 0xEE}
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	table := &layout.Table{
		Placed:  layout.Placed{Box: layout.Box{W: 150, H: 42}, ElementID: "table"},
		Columns: []float64{100, 50},
		Rows: []*layout.TableRow{
			{Kind: element.HeaderRow, Background: shade, Cells: []*layout.TableCell{
				{Width: 100, Text: "Item", Style: style.Default()},
				{X: 100, Width: 50, Text: "Date", Style: style.Default()},
			}},
			{Kind: element.ContentRow, Y: 14, Cells: []*layout.TableCell{
				{Width: 100, Text: "Widget", Style: style.Default()},
				{X: 100, Width: 50, Text: "01.03.2024", Value: when, Pattern: "dd.MM.yyyy", Style: style.Default()},
			}},
			{Kind: element.FooterRow, Y: 28, Cells: []*layout.TableCell{
				{Width: 150, Colspan: 2, Text: "done", Style: style.Default()},
			}},
		},
		HRules:      []layout.Rule{{X2: 150}},
		BorderWidth: 1,
	}
	frame := &layout.Frame{
		Placed: layout.Placed{Box: layout.Box{Y: 60, W: 100, H: 40}, ElementID: "frame"},
		Items:  []layout.Item{text("a", 0, 0, 30, "a"), text("b", 0, 20, 30, "b")},
	}
	line := &layout.Line{Placed: layout.Placed{Box: layout.Box{Y: 110, W: 100, H: 1}}}
	after := text("after", 0, 120, 30, "after")

	wb := renderFake(t, &render.Job{Bands: &render.Bands{Content: []layout.Item{table, frame, line, after}}})

	head, _ := wb.at(0, 0)
	assert.Equal(t, "Item", head.Value)
	assert.Equal(t, "EEEEEE", head.Format.Fill)
	assert.True(t, head.Format.Border)

	date, _ := wb.at(1, 1)
	assert.Equal(t, when, date.Value)
	assert.Equal(t, "dd.mm.yyyy", date.Format.NumFmt)

	done, _ := wb.at(2, 0)
	assert.Equal(t, "done", done.Value)
	assert.Contains(t, wb.merges, merge{2, 0, 2})

	a, _ := wb.at(3, 0)
	b, _ := wb.at(4, 0)
	assert.Equal(t, "a", a.Value)
	assert.Equal(t, "b", b.Value)

	last, ok := wb.at(5, 0)
	require.True(t, ok)
	assert.Equal(t, "after", last.Value)
}

func TestRenderImagesAndSymbols(t *testing.T) {
	img := &layout.Image{
		Placed: layout.Placed{Box: layout.Box{W: 40, H: 40}, ElementID: "img"},
		Source: imaging.FromBytes(pngImage(t)),
	}
	qr := &layout.Symbol{
		Placed: layout.Placed{Box: layout.Box{X: 50, W: 40, H: 40}, ElementID: "qr"},
		Format: "QR", Content: "https://example.com",
	}
	pdf417 := &layout.Symbol{
		Placed: layout.Placed{Box: layout.Box{X: 100, W: 40, H: 40}, ElementID: "pdf417"},
		Format: "PDF417", Content: "stacked",
	}
	wb := renderFake(t, &render.Job{Bands: &render.Bands{Content: []layout.Item{img, qr, pdf417}}})
	assert.Equal(t, []string{"A1.png", "B1.png"}, wb.images)
	cell, ok := wb.at(0, 2)
	require.True(t, ok)
	assert.Equal(t, "stacked", cell.Value)
}

func TestRenderInvalidBarCodeIsFatal(t *testing.T) {
	bad := &layout.Symbol{
		Placed: layout.Placed{Box: layout.Box{W: 40, H: 20}, ElementID: "bar"},
		Format: "CODE128", Content: "☃",
	}
	_, err := New(WithWorkbook(func() Workbook { return &fakeWorkbook{} })).
		Render(context.Background(), &render.Job{Bands: &render.Bands{Content: []layout.Item{bad}}})
	fe, ok := diag.AsFatal(err)
	require.True(t, ok, err)
	assert.Equal(t, "bar", fe.Err.ObjectID)
	assert.Equal(t, diag.MsgInvalidBarCode, fe.Err.MsgKey)
}

func TestRenderWithoutBands(t *testing.T) {
	_, err := New().Render(context.Background(), &render.Job{})
	assert.ErrorIs(t, err, render.ErrNoDocument)
}

func TestExcelizeWorkbook(t *testing.T) {
	wb := NewExcelizeWorkbook()
	require.NoError(t, wb.WriteCell(Cell{Row: 0, Col: 0, Value: "Name", Format: Format{Bold: true, Border: true}}))
	require.NoError(t, wb.WriteCell(Cell{Row: 0, Col: 1, Value: 12.5, Format: Format{NumFmt: "0.00"}, URL: "https://example.com"}))
	require.NoError(t, wb.Merge(1, 0, 2))
	require.NoError(t, wb.SetColumnWidth(0, 20))
	require.NoError(t, wb.InsertImage(2, 0, pngImage(t), ".png", ""))

	out, err := wb.Bytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)
	v, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Name", v)
	merged, err := f.GetMergeCells(sheet)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A2", merged[0].GetStartAxis())
	assert.Equal(t, "B2", merged[0].GetEndAxis())
	width, err := f.GetColWidth(sheet, "A")
	require.NoError(t, err)
	assert.InDelta(t, 20, width, 1e-9)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, "", NumberFormat("", "$"))
	assert.Equal(t, `"$"#,##0.00`, NumberFormat("$#,##0.00", "$"))
	assert.Equal(t, `#,##0 "CHF"`, NumberFormat("#,##0 ¤", "CHF"))

	assert.Equal(t, "yyyy-mm-dd", DateFormat(""))
	assert.Equal(t, "dd.mm.yyyy hh:mm", DateFormat("dd.MM.yyyy HH:mm"))
	assert.Equal(t, `dddd, d mmmm "at" h AM/PM`, DateFormat("EEEE, d MMMM 'at' h a"))
}
