package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Format is the visual format of one cell. It is comparable so that
// workbooks can share one style per distinct format.
type Format struct {
	Font      string
	Size      float64
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	Color     string // RRGGBB
	Fill      string // RRGGBB, empty for none
	HAlign    string // left, center, right, justify
	VAlign    string // top, center, bottom
	Border    bool
	NumFmt    string
}

// Cell is one value written at a zero-based row and column.
type Cell struct {
	Row    int
	Col    int
	Value  any // string, float64, time.Time or bool
	Format Format
	URL    string
}

// Workbook receives the cells of one worksheet.
type Workbook interface {
	WriteCell(c Cell) error
	Merge(row, col, colspan int) error
	InsertImage(row, col int, data []byte, ext, url string) error
	SetColumnWidth(col int, width float64) error
	Bytes() ([]byte, error)
}

// ExcelizeWorkbook writes the first sheet of a new excelize file.
type ExcelizeWorkbook struct {
	f      *excelize.File
	sheet  string
	styles map[Format]int
}

// NewExcelizeWorkbook creates an empty workbook.
func NewExcelizeWorkbook() *ExcelizeWorkbook {
	f := excelize.NewFile()
	return &ExcelizeWorkbook{f: f, sheet: f.GetSheetName(0), styles: make(map[Format]int)}
}

func cellName(row, col int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row+1)
	return name
}

// WriteCell implements Workbook.
func (b *ExcelizeWorkbook) WriteCell(c Cell) error {
	axis := cellName(c.Row, c.Col)
	if err := b.f.SetCellValue(b.sheet, axis, c.Value); err != nil {
		return fmt.Errorf("xlsx: write %s: %w", axis, err)
	}
	id, err := b.style(c.Format)
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(b.sheet, axis, axis, id); err != nil {
		return fmt.Errorf("xlsx: style %s: %w", axis, err)
	}
	if c.URL != "" {
		if err := b.f.SetCellHyperLink(b.sheet, axis, c.URL, "External"); err != nil {
			return fmt.Errorf("xlsx: link %s: %w", axis, err)
		}
	}
	return nil
}

// Merge implements Workbook.
func (b *ExcelizeWorkbook) Merge(row, col, colspan int) error {
	if colspan < 2 {
		return nil
	}
	return b.f.MergeCell(b.sheet, cellName(row, col), cellName(row, col+colspan-1))
}

// InsertImage implements Workbook.
func (b *ExcelizeWorkbook) InsertImage(row, col int, data []byte, ext, url string) error {
	pic := &excelize.Picture{Extension: ext, File: data, Format: &excelize.GraphicOptions{}}
	if url != "" {
		pic.Format.Hyperlink, pic.Format.HyperlinkType = url, "External"
	}
	if err := b.f.AddPictureFromBytes(b.sheet, cellName(row, col), pic); err != nil {
		return fmt.Errorf("xlsx: image at %s: %w", cellName(row, col), err)
	}
	return nil
}

// SetColumnWidth implements Workbook. width is in characters.
func (b *ExcelizeWorkbook) SetColumnWidth(col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return err
	}
	return b.f.SetColWidth(b.sheet, name, name, width)
}

// Bytes implements Workbook. The workbook is closed afterwards.
func (b *ExcelizeWorkbook) Bytes() ([]byte, error) {
	defer b.f.Close()
	buf, err := b.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *ExcelizeWorkbook) style(fm Format) (int, error) {
	if id, ok := b.styles[fm]; ok {
		return id, nil
	}
	st := &excelize.Style{
		Font: &excelize.Font{
			Bold:   fm.Bold,
			Italic: fm.Italic,
			Family: fm.Font,
			Size:   fm.Size,
			Strike: fm.Strike,
			Color:  fm.Color,
		},
		Alignment: &excelize.Alignment{Horizontal: fm.HAlign, Vertical: fm.VAlign, WrapText: true},
	}
	if fm.Underline {
		st.Font.Underline = "single"
	}
	if fm.Fill != "" {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fm.Fill}}
	}
	if fm.Border {
		st.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}
	if fm.NumFmt != "" {
		numFmt := fm.NumFmt
		st.CustomNumFmt = &numFmt
	}
	id, err := b.f.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("xlsx: style: %w", err)
	}
	b.styles[fm] = id
	return id, nil
}
