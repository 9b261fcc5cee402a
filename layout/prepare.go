package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/element"
	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/param"
	"github.com/lvillar/docband/symbol"
)

// preparer resolves the data of every element of a container once: texts
// are filled and wrapped, conditions evaluated and data sources expanded
// into rows. Anything that cannot be resolved is fatal.
type preparer struct {
	ec   *eval.Context
	m    Measurer
	flat bool
}

func (p *preparer) container(c *element.Container) (*containerState, error) {
	blocks := make([]block, len(c.Elements))
	for i, el := range c.Elements {
		b, err := p.block(el)
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}
	return newContainerState(c, blocks, p.flat), nil
}

func (p *preparer) block(el element.Element) (block, error) {
	base := el.Common()
	ok, err := p.ec.Test(base.PrintIf)
	if err != nil {
		return nil, exprFatal(base.ID, "printIf", err)
	}
	if !ok {
		return &removedBlock{el: base}, nil
	}

	switch e := el.(type) {
	case *element.Text:
		return p.text(e)
	case *element.Line:
		return &fixedBlock{el: base, item: &Line{Placed: placed(base), Color: e.Color}}, nil
	case *element.Image:
		return p.image(e)
	case *element.Symbol:
		return p.symbol(e)
	case *element.PageBreak:
		return &breakBlock{el: base}, nil
	case *element.Table:
		return p.table(e)
	case *element.Frame:
		inner, err := p.container(e.Container)
		if err != nil {
			return nil, err
		}
		return &frameBlock{f: e, inner: inner}, nil
	case *element.Section:
		return p.section(e)
	}
	return nil, fmt.Errorf("layout: unsupported element %T", el)
}

func placed(b *element.Base) Placed {
	return Placed{
		Box:         Box{X: b.X, W: b.Width, H: b.Height},
		ElementID:   b.ID,
		Style:       b.Style,
		Spreadsheet: b.Spreadsheet,
	}
}

// exprFatal turns an evaluation error into a fatal diagnostic.
func exprFatal(id, field string, err error) error {
	var re *eval.RefError
	if errors.As(err, &re) {
		fe := diag.Fatalw(id, field, diag.MsgMissingParameter, err)
		fe.Err.Context = re.Name
		return fe
	}
	return diag.Fatalw(id, field, diag.MsgInvalidExpression, err)
}

// fill resolves the references in text and, when text is a single reference,
// also returns the typed value behind it with its effective pattern.
func (p *preparer) fill(id, field, text, pattern string) (string, any, string, error) {
	out, err := p.ec.Fill(text, pattern)
	if err != nil {
		return "", nil, "", exprFatal(id, field, err)
	}
	var value any
	if name, ok := eval.IsReference(text); ok {
		v, prm, _ := p.ec.Lookup(name)
		value = v
		if pattern == "" && prm != nil {
			pattern = prm.Pattern
		}
	}
	return out, value, pattern, nil
}

func (p *preparer) text(e *element.Text) (block, error) {
	pattern := e.Pattern
	if pattern == "" {
		pattern = e.Style.Pattern
	}
	var (
		s     string
		value any
		err   error
	)
	if e.Eval != nil {
		value, err = p.ec.Run(e.Eval)
		if err != nil {
			return nil, exprFatal(e.ID, "content", err)
		}
		s = p.ec.Formatter().Format(value, pattern)
	} else if s, value, pattern, err = p.fill(e.ID, "content", e.Content, pattern); err != nil {
		return nil, err
	}
	if e.RemoveEmpty && strings.TrimSpace(s) == "" {
		return &removedBlock{el: &e.Base}, nil
	}
	link, _, _, err := p.fill(e.ID, "link", e.Link, "")
	if err != nil {
		return nil, err
	}

	pad := e.Style.Padding
	b := &textBlock{
		el:    &e.Base,
		lines: Wrap(p.m, s, e.Style, e.Width-pad.Left-pad.Right),
	}
	b.proto = Text{Placed: placed(&e.Base), Link: link, Value: value, Pattern: pattern}
	return b, nil
}

func (p *preparer) image(e *element.Image) (block, error) {
	src, err := p.imageSource(e)
	if err != nil {
		return nil, err
	}
	if src.Empty() {
		if e.RemoveEmpty {
			return &removedBlock{el: &e.Base}, nil
		}
		return &fixedBlock{el: &e.Base}, nil
	}
	link, _, _, err := p.fill(e.ID, "link", e.Link, "")
	if err != nil {
		return nil, err
	}
	return &fixedBlock{el: &e.Base, item: &Image{Placed: placed(&e.Base), Source: src, Link: link}}, nil
}

// imageSource resolves, in order, a parameter reference, a literal URL and
// the static data of the element.
func (p *preparer) imageSource(e *element.Image) (imaging.Source, error) {
	fatal := func(err error) (imaging.Source, error) {
		return imaging.Source{}, diag.Fatalw(e.ID, "source", imaging.MsgKey(err), err)
	}
	if e.Source != "" {
		name, isRef := eval.IsReference(e.Source)
		if !isRef {
			u, err := p.ec.Fill(e.Source, "")
			if err != nil {
				return imaging.Source{}, exprFatal(e.ID, "source", err)
			}
			src, err := imaging.FromURL(u)
			if err != nil {
				return fatal(err)
			}
			return src, nil
		}
		v, prm, ok := p.ec.Lookup(name)
		if !ok {
			return imaging.Source{}, diag.Fatal(e.ID, "source", diag.MsgMissingParameter, name)
		}
		switch prm.ValueType() {
		case param.String:
			u, _ := v.(string)
			if strings.TrimSpace(u) == "" {
				return imaging.Source{}, nil
			}
			src, err := imaging.FromURL(strings.TrimSpace(u))
			if err != nil {
				return fatal(err)
			}
			return src, nil
		case param.Image:
			src, _, err := imaging.FromValue(v)
			if err != nil {
				return fatal(err)
			}
			return src, nil
		}
		return imaging.Source{}, diag.Fatal(e.ID, "source", diag.MsgInvalidImageSourceParameter, name)
	}
	if e.Data != "" {
		src, err := imaging.FromDataURI(e.Data)
		if err != nil {
			return fatal(err)
		}
		return src, nil
	}
	return imaging.Source{}, nil
}

func (p *preparer) symbol(e *element.Symbol) (block, error) {
	content, err := p.ec.Fill(e.Content, "")
	if err != nil {
		return nil, exprFatal(e.ID, "content", err)
	}
	if strings.TrimSpace(content) == "" {
		if e.RemoveEmpty {
			return &removedBlock{el: &e.Base}, nil
		}
		return &fixedBlock{el: &e.Base}, nil
	}
	if err := symbol.Validate(e.Format, content); err != nil {
		return nil, diag.Fatalw(e.ID, "content", diag.MsgInvalidBarCode, err)
	}
	item := &Symbol{
		Placed:       placed(&e.Base),
		Kind:         e.Kind,
		Format:       e.Format,
		Content:      content,
		DisplayValue: e.DisplayValue,
	}
	return &fixedBlock{el: &e.Base, item: item}, nil
}

// rows resolves a data source reference to the array parameter and its rows.
// An empty data source yields a single row without scope.
func (p *preparer) rows(id, source string) (*param.Parameter, []map[string]any, error) {
	if source == "" {
		return nil, []map[string]any{nil}, nil
	}
	name, ok := eval.IsReference(source)
	if !ok {
		name = source
	}
	v, prm, ok := p.ec.Lookup(name)
	if !ok {
		return nil, nil, diag.Fatal(id, "dataSource", diag.MsgMissingParameter, name)
	}
	if prm.Type != param.Array {
		return nil, nil, diag.Fatal(id, "dataSource", diag.MsgInvalidArray, name)
	}
	rows, _ := v.([]map[string]any)
	return prm, rows, nil
}

// each calls fn once per row with the row pushed as the innermost scope.
func (p *preparer) each(prm *param.Parameter, rows []map[string]any, fn func() error) error {
	for _, row := range rows {
		if prm != nil {
			p.ec.PushScope(prm, row)
		}
		err := fn()
		if prm != nil {
			p.ec.PopScope()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *preparer) table(e *element.Table) (block, error) {
	b := &tableBlock{t: e}
	var err error
	if e.Header != nil {
		if b.header, err = p.row(e.Header); err != nil {
			return nil, err
		}
	}
	prm, rows, err := p.rows(e.ID, e.DataSource)
	if err != nil {
		return nil, err
	}
	err = p.each(prm, rows, func() error {
		for _, def := range e.ContentRows {
			r, err := p.row(def)
			if err != nil {
				return err
			}
			if r != nil {
				b.rows = append(b.rows, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.Footer != nil {
		if b.footer, err = p.row(e.Footer); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// row fills the cells of a row definition. It returns nil when the row is
// not printed.
func (p *preparer) row(def *element.Row) (*TableRow, error) {
	ok, err := p.ec.Test(def.PrintIf)
	if err != nil {
		return nil, exprFatal(def.ID, "printIf", err)
	}
	if !ok {
		return nil, nil
	}
	r := &TableRow{Kind: def.Kind, Height: def.Height, Background: def.Background}
	var x float64
	for _, c := range def.Cells {
		st := c.Style
		pattern := c.Pattern
		if pattern == "" {
			pattern = st.Pattern
		}
		text, value, pattern, err := p.fill(c.ID, "content", c.Content, pattern)
		if err != nil {
			return nil, err
		}
		link, _, _, err := p.fill(c.ID, "link", c.Link, "")
		if err != nil {
			return nil, err
		}
		lines := Wrap(p.m, text, st, c.Width-st.Padding.Left-st.Padding.Right)
		h := st.Padding.Top + float64(len(lines))*st.LineHeight() + st.Padding.Bottom
		if h > r.Height {
			r.Height = h
		}
		r.Cells = append(r.Cells, &TableCell{
			X:       x,
			Width:   c.Width,
			Colspan: c.Colspan,
			Lines:   lines,
			Text:    text,
			Value:   value,
			Pattern: pattern,
			Link:    link,
			Style:   st,
		})
		x += c.Width
	}
	return r, nil
}

func (p *preparer) section(e *element.Section) (block, error) {
	b := &sectionBlock{s: e}
	if e.Header != nil {
		h, err := p.container(e.Header)
		if err != nil {
			return nil, err
		}
		b.parts = append(b.parts, h)
	}
	prm, rows, err := p.rows(e.ID, e.DataSource)
	if err != nil {
		return nil, err
	}
	err = p.each(prm, rows, func() error {
		c, err := p.container(e.Content)
		if err != nil {
			return err
		}
		b.parts = append(b.parts, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.Footer != nil {
		f, err := p.container(e.Footer)
		if err != nil {
			return nil, err
		}
		b.parts = append(b.parts, f)
	}
	return b, nil
}
