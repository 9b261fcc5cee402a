package element

import (
	"errors"
	"sort"
	"strings"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/page"
	"github.com/lvillar/docband/style"
)

// ErrNoDefinition is returned by Build for a nil definition.
var ErrNoDefinition = errors.New("element: no report definition")

type builder struct {
	styles     *style.Table
	errs       *diag.List
	containers map[string]*Container
	sections   []*Section
}

// Build creates the element tree of def. Structural problems such as unknown
// containers, unknown element types, invalid expressions or elements outside
// a visible container are recorded in errs; the offending element is dropped
// or kept as described for each case and building continues.
func Build(def *definition.Report, styles *style.Table, props *page.Properties, errs *diag.List) (*Bands, error) {
	if def == nil {
		return nil, ErrNoDefinition
	}
	b := &builder{styles: styles, errs: errs, containers: make(map[string]*Container)}

	bands := &Bands{
		Header:  b.container(definition.HeaderContainer, props.ContentWidth(), props.HeaderSize, props.HeaderDisplay != page.Never),
		Content: b.container(definition.ContentContainer, props.ContentWidth(), props.ContentHeight, true),
		Footer:  b.container(definition.FooterContainer, props.ContentWidth(), props.FooterSize, props.FooterDisplay != page.Never),
	}

	type pending struct {
		el          Element
		containerID string
	}
	var all []pending
	for i := range def.DocElements {
		d := &def.DocElements[i]
		el := b.element(d)
		if el == nil {
			continue
		}
		all = append(all, pending{el: el, containerID: d.ContainerID.String()})
	}

	// sections without a width span the rest of their container; nested
	// sections resolve outside in
	for range b.sections {
		for _, p := range all {
			s, ok := p.el.(*Section)
			if !ok || s.Width != 0 {
				continue
			}
			if c, ok := b.containers[p.containerID]; ok && c.Width > 0 {
				s.setWidth(c.Width - s.X)
			}
		}
	}

	for _, p := range all {
		c, ok := b.containers[p.containerID]
		if !ok {
			b.errs.Addf(p.el.Common().ID, "containerId", diag.MsgUnknownContainer, p.containerID)
			continue
		}
		b.attach(c, p.el)
	}

	for _, c := range b.containers {
		c.sortElements()
	}
	return bands, nil
}

func (b *builder) container(id string, width, height float64, visible bool) *Container {
	c := &Container{ID: id, Width: width, Height: height, Visible: visible}
	b.containers[id] = c
	return c
}

func (b *builder) attach(c *Container, el Element) {
	base := el.Common()
	if c.Visible {
		switch {
		case base.X < 0:
			b.errs.Addf(base.ID, "position", diag.MsgInvalidPosition, "")
		case base.Right() > c.Width:
			b.errs.Addf(base.ID, "position", diag.MsgInvalidSize, "")
		}
		switch {
		case base.Y < 0:
			b.errs.Addf(base.ID, "position", diag.MsgInvalidPosition, "")
		case c.Height > 0 && base.Bottom() > c.Height:
			b.errs.Addf(base.ID, "position", diag.MsgInvalidSize, "")
		}
	}
	c.Elements = append(c.Elements, el)
}

// sortElements orders elements by (y, x) and records their predecessors.
func (c *Container) sortElements() {
	sort.SliceStable(c.Elements, func(i, j int) bool {
		a, b := c.Elements[i].Common(), c.Elements[j].Common()
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	c.Preds = make([][]int, len(c.Elements))
	for i, el := range c.Elements {
		y := el.Common().Y
		for j := 0; j < i; j++ {
			if y >= c.Elements[j].Common().Bottom() {
				c.Preds[i] = append(c.Preds[i], j)
			}
		}
	}
}

func (b *builder) base(d *definition.Element, kind Kind) Base {
	id := d.ID.String()
	base := Base{
		ID:          id,
		Kind:        kind,
		X:           d.X.Float(),
		Y:           d.Y.Float(),
		Width:       d.Width.Float(),
		Height:      d.Height.Float(),
		Style:       b.styles.Resolve(d.StyleID, d.Style, id, b.errs),
		RemoveEmpty: d.RemoveEmptyElement,
		SamePage:    d.AlwaysPrintOnSamePage,
		Spreadsheet: Spreadsheet{
			Hide:        d.SpreadsheetHide,
			Column:      d.SpreadsheetColumn.Int(),
			Colspan:     d.SpreadsheetColspan.Int(),
			AddEmptyRow: d.SpreadsheetAddEmptyRow,
		},
	}
	base.PrintIf = b.compile(id, "printIf", d.PrintIf)
	return base
}

func (b *builder) compile(id, field, src string) *eval.Program {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	p, err := eval.Compile(src)
	if err != nil {
		b.errs.Add(diag.Error{ObjectID: id, Field: field, MsgKey: diag.MsgInvalidExpression, Context: src, Info: err.Error()})
		return nil
	}
	return p
}

func (b *builder) element(d *definition.Element) Element {
	kind := Kind(strings.ToLower(d.ElementType))
	switch kind {
	case KindText:
		t := &Text{Base: b.base(d, kind), Content: d.Content, Pattern: d.Pattern, Link: d.Link}
		if d.Eval {
			t.Eval = b.compile(t.ID, "content", d.Content)
		}
		return t

	case KindLine:
		l := &Line{Base: b.base(d, kind)}
		if c := style.Color(d.Color, l.ID, "color", b.errs); c != nil {
			l.Color = *c
		}
		return l

	case KindImage:
		return &Image{Base: b.base(d, kind), Source: strings.TrimSpace(d.Source), Data: d.Image, Filename: d.ImageFilename, Link: d.Link}

	case KindBarCode, KindQRCode:
		s := &Symbol{Base: b.base(d, kind), Content: d.Content, Format: strings.ToUpper(d.Format), DisplayValue: d.DisplayValue}
		if s.Format == "" {
			s.Format = "CODE128"
			if kind == KindQRCode {
				s.Format = "QR"
			}
		}
		return s

	case KindPageBreak:
		pb := &PageBreak{Base: b.base(d, kind)}
		pb.Height = 0
		return pb

	case KindTable:
		return b.table(d)

	case KindFrame:
		f := &Frame{Base: b.base(d, kind), Label: d.Label, Shrink: d.ShrinkToContentHeight}
		f.Container = b.container(f.ID, f.Width, f.Height, true)
		return f

	case KindSection:
		s := &Section{Base: b.base(d, kind), DataSource: strings.TrimSpace(d.DataSource)}
		contentH := d.ContentHeight.Float()
		if contentH == 0 {
			contentH = s.Height
		}
		s.Content = b.container(s.ID+"_content", s.Width, contentH, true)
		s.Height = contentH
		if d.Header {
			s.Header = b.container(s.ID+"_header", s.Width, d.HeaderHeight.Float(), true)
			s.Height += s.Header.Height
		}
		if d.Footer {
			s.Footer = b.container(s.ID+"_footer", s.Width, d.FooterHeight.Float(), true)
			s.Height += s.Footer.Height
		}
		b.sections = append(b.sections, s)
		return s
	}

	b.errs.Addf(d.ID.String(), "elementType", diag.MsgUnknownElementType, d.ElementType)
	return nil
}

func (b *builder) table(d *definition.Element) *Table {
	t := &Table{
		Base:         b.base(d, KindTable),
		DataSource:   strings.TrimSpace(d.DataSource),
		Border:       parseBorder(d.Border),
		BorderWidth:  d.BorderWidth.Float(),
		RepeatHeader: d.RepeatHeader,
	}
	if t.BorderWidth <= 0 {
		t.BorderWidth = 1
	}
	if c := style.Color(d.BorderColor, t.ID, "borderColor", b.errs); c != nil {
		t.BorderColor = *c
	}

	t.Columns = columnWidths(d)
	if w := t.ColumnWidth(); w > 0 {
		t.Width = w
	}

	var height float64
	if d.Header && d.HeaderData != nil {
		t.Header = b.row(t, d.HeaderData, HeaderRow)
		height += t.Header.Height
	}
	for i := range d.ContentDataRows {
		r := b.row(t, &d.ContentDataRows[i], ContentRow)
		t.ContentRows = append(t.ContentRows, r)
		height += r.Height
	}
	if d.Footer && d.FooterData != nil {
		t.Footer = b.row(t, d.FooterData, FooterRow)
		height += t.Footer.Height
	}
	if t.Height == 0 {
		t.Height = height
	}
	return t
}

// columnWidths takes the column widths from the first row that defines cells,
// header first. A spanning cell shares its width among the spanned columns.
func columnWidths(d *definition.Element) []float64 {
	candidates := []*definition.TableRow{d.HeaderData}
	for i := range d.ContentDataRows {
		candidates = append(candidates, &d.ContentDataRows[i])
	}
	candidates = append(candidates, d.FooterData)

	for _, r := range candidates {
		if r == nil || len(r.ColumnData) == 0 {
			continue
		}
		var cols []float64
		for _, c := range r.ColumnData {
			span := max(c.Colspan.Int(), 1)
			for i := 0; i < span; i++ {
				cols = append(cols, c.Width.Float()/float64(span))
			}
		}
		if n := d.Columns.Int(); n > 0 && n < len(cols) {
			cols = cols[:n]
		}
		return cols
	}
	return nil
}

func (b *builder) row(t *Table, d *definition.TableRow, kind RowKind) *Row {
	r := &Row{ID: d.ID.String(), Kind: kind, Height: d.Height.Float()}
	if r.ID == "" {
		r.ID = t.ID
	}
	r.PrintIf = b.compile(r.ID, "printIf", d.PrintIf)
	r.Background = style.Color(d.BackgroundColor, r.ID, "backgroundColor", b.errs)

	col := 0
	for _, cd := range d.ColumnData {
		span := max(cd.Colspan.Int(), 1)
		cell := &Cell{
			ID:      cd.ID.String(),
			Content: cd.Content,
			Colspan: span,
			Pattern: cd.Pattern,
			Link:    cd.Link,
		}
		if cell.ID == "" {
			cell.ID = r.ID
		}
		for i := col; i < col+span && i < len(t.Columns); i++ {
			cell.Width += t.Columns[i]
		}
		if cell.Width == 0 {
			cell.Width = cd.Width.Float()
		}
		col += span

		if cd.StyleID == "" && cd.Style == nil {
			cell.Style = t.Style
		} else {
			cell.Style = b.styles.Resolve(cd.StyleID, cd.Style, cell.ID, b.errs)
		}
		r.Cells = append(r.Cells, cell)
	}
	if r.Height == 0 {
		st := t.Style
		r.Height = st.LineHeight() + st.Padding.Top + st.Padding.Bottom
	}
	return r
}

func (s *Section) setWidth(w float64) {
	s.Width = w
	for _, c := range []*Container{s.Header, s.Content, s.Footer} {
		if c != nil {
			c.Width = w
		}
	}
}

func parseBorder(s string) Border {
	switch b := Border(strings.ToLower(s)); b {
	case BorderGrid, BorderFrameRow, BorderFrame, BorderRow, BorderNone:
		return b
	}
	return BorderGrid
}
