package layout

import (
	"math"

	"github.com/lvillar/docband/element"
)

const epsilon = 0.001

// placement is the outcome of laying out a block on one page.
type placement struct {
	items   []Item
	height  float64 // vertical space taken, trailing container space included
	content float64 // bottom of the placed items
	done    bool
	moved   bool // false when nothing could be placed
}

// A block is the prepared, stateful form of an element. place lays out as
// much of the remaining block as fits in avail; top forces progress because
// nothing else was placed on the page yet.
type block interface {
	base() *element.Base
	place(avail float64, top bool) placement
	natural() float64
}

// removedBlock stands for an element that is not printed. It takes no space,
// so the elements below it move up.
type removedBlock struct{ el *element.Base }

func (b *removedBlock) base() *element.Base { return b.el }
func (b *removedBlock) natural() float64    { return 0 }

func (b *removedBlock) place(float64, bool) placement {
	return placement{done: true, moved: true}
}

type breakBlock struct{ el *element.Base }

func (b *breakBlock) base() *element.Base { return b.el }
func (b *breakBlock) natural() float64    { return 0 }

func (b *breakBlock) place(float64, bool) placement {
	return placement{done: true, moved: true}
}

// fixedBlock is an element of fixed height that is never split. A nil item
// keeps the space without drawing anything.
type fixedBlock struct {
	el   *element.Base
	item Item
}

func (b *fixedBlock) base() *element.Base { return b.el }
func (b *fixedBlock) natural() float64    { return b.el.Height }

func (b *fixedBlock) place(avail float64, top bool) placement {
	if b.el.Height > avail+epsilon && !top {
		return placement{}
	}
	p := placement{height: b.el.Height, content: b.el.Height, done: true, moved: true}
	if b.item != nil {
		p.items = []Item{b.item}
	}
	return p
}

// textBlock grows with its wrapped lines and splits between lines.
type textBlock struct {
	el    *element.Base
	proto Text
	lines []string
	next  int
}

func (b *textBlock) base() *element.Base { return b.el }

func (b *textBlock) linesHeight(n int) float64 {
	pad := b.el.Style.Padding
	return pad.Top + float64(n)*b.el.Style.LineHeight() + pad.Bottom
}

func (b *textBlock) natural() float64 {
	return math.Max(b.el.Height, b.linesHeight(len(b.lines)))
}

func (b *textBlock) place(avail float64, top bool) placement {
	rest := len(b.lines) - b.next
	first := b.next == 0
	need := b.linesHeight(rest)
	if first {
		need = math.Max(need, b.el.Height)
	}
	if need <= avail+epsilon {
		return b.emit(rest, need, true)
	}
	if b.el.SamePage && first && !top {
		return placement{}
	}
	if rest == 0 {
		if !top {
			return placement{}
		}
		return b.emit(0, need, true)
	}
	fit := 0
	if lh := b.el.Style.LineHeight(); lh > 0 {
		pad := b.el.Style.Padding
		fit = int((avail - pad.Top - pad.Bottom + epsilon) / lh)
	}
	if fit >= rest {
		// the lines fit, the design height does not
		return b.emit(rest, math.Max(b.linesHeight(rest), avail), true)
	}
	if fit <= 0 {
		if !top {
			return placement{}
		}
		fit = 1
	}
	return b.emit(fit, b.linesHeight(fit), fit >= rest)
}

func (b *textBlock) emit(n int, h float64, done bool) placement {
	t := b.proto
	t.Box = Box{X: b.el.X, W: b.el.Width, H: h}
	t.Lines = b.lines[b.next : b.next+n]
	t.Continued = b.next > 0
	b.next += n
	return placement{items: []Item{&t}, height: h, content: h, done: done, moved: true}
}

// tableBlock splits between content rows. The header is repeated on every
// slice when the table asks for it; the footer follows the last row.
type tableBlock struct {
	t       *element.Table
	header  *TableRow
	footer  *TableRow
	rows    []*TableRow
	next    int
	started bool
}

func (b *tableBlock) base() *element.Base { return &b.t.Base }

func (b *tableBlock) width() float64 {
	if w := b.t.ColumnWidth(); w > 0 {
		return w
	}
	return b.t.Width
}

func (b *tableBlock) natural() float64 {
	var h float64
	for _, r := range append([]*TableRow{b.header, b.footer}, b.rows...) {
		if r != nil {
			h += r.Height
		}
	}
	return h
}

func (b *tableBlock) place(avail float64, top bool) placement {
	if b.t.SamePage && !b.started && !top && b.natural() > avail+epsilon {
		return placement{}
	}
	var rows []*TableRow
	var y float64
	add := func(r *TableRow) {
		c := *r
		c.Y = y
		rows = append(rows, &c)
		y += r.Height
	}
	if b.header != nil && (!b.started || b.t.RepeatHeader) {
		add(b.header)
	}
	placed := 0
	for b.next < len(b.rows) {
		r := b.rows[b.next]
		if y+r.Height > avail+epsilon && !(top && placed == 0) {
			break
		}
		add(r)
		b.next++
		placed++
	}
	done := false
	if b.next == len(b.rows) {
		switch {
		case b.footer == nil:
			done = true
		case y+b.footer.Height <= avail+epsilon || (top && placed == 0):
			add(b.footer)
			done = true
		}
	}
	if placed == 0 && !done {
		return placement{}
	}
	b.started = true
	if len(rows) == 0 {
		return placement{done: true, moved: true}
	}

	w := b.width()
	hr, vr := tableRules(b.t.Border, rows, w)
	item := &Table{
		Placed: Placed{
			Box:         Box{X: b.t.X, W: w, H: y},
			ElementID:   b.t.ID,
			Style:       b.t.Style,
			Spreadsheet: b.t.Spreadsheet,
		},
		Columns:     b.t.Columns,
		Rows:        rows,
		HRules:      hr,
		VRules:      vr,
		BorderWidth: b.t.BorderWidth,
		BorderColor: b.t.BorderColor,
	}
	return placement{items: []Item{item}, height: y, content: y, done: done, moved: true}
}

// frameBlock lays out its container inside the frame border. A frame that
// splits fills the rest of the page.
type frameBlock struct {
	f       *element.Frame
	inner   *containerState
	started bool
}

func (b *frameBlock) base() *element.Base { return &b.f.Base }

func (b *frameBlock) inset() float64 {
	if b.f.Style.Border.Any() {
		return b.f.Style.Border.Width
	}
	return 0
}

func (b *frameBlock) natural() float64 {
	if b.f.Shrink {
		return b.inner.naturalContent() + 2*b.inset()
	}
	return b.inner.natural() + 2*b.inset()
}

func (b *frameBlock) place(avail float64, top bool) placement {
	if b.f.SamePage && !b.started && !top && b.natural() > avail+epsilon {
		return placement{}
	}
	in := b.inset()
	res := b.inner.place(avail-2*in, top)
	if !res.moved {
		return placement{}
	}
	b.started = true
	h := res.height
	if b.f.Shrink {
		h = res.content
	}
	h += 2 * in
	if !res.done {
		h = math.Max(h, avail)
	}
	shiftAll(res.items, in, in)
	item := &Frame{
		Placed: Placed{
			Box:         Box{X: b.f.X, W: b.f.Width, H: h},
			ElementID:   b.f.ID,
			Style:       b.f.Style,
			Spreadsheet: b.f.Spreadsheet,
		},
		Items: res.items,
	}
	return placement{items: []Item{item}, height: h, content: h, done: res.done, moved: true}
}

// sectionBlock places its header, one content container per data row and
// its footer one below the other. Their items are merged into the parent.
type sectionBlock struct {
	s     *element.Section
	parts []*containerState
	cur   int
}

func (b *sectionBlock) base() *element.Base { return &b.s.Base }

func (b *sectionBlock) natural() float64 {
	var h float64
	for _, p := range b.parts {
		h += p.natural()
	}
	return h
}

func (b *sectionBlock) place(avail float64, top bool) placement {
	if b.cur == len(b.parts) {
		return placement{done: true, moved: true}
	}
	if b.s.SamePage && b.cur == 0 && !b.parts[0].begun && !top && b.natural() > avail+epsilon {
		return placement{}
	}
	var items []Item
	var y float64
	moved := false
	for b.cur < len(b.parts) {
		res := b.parts[b.cur].place(avail-y, top && !moved)
		if !res.moved {
			break
		}
		moved = true
		shiftAll(res.items, b.s.X, y)
		items = append(items, res.items...)
		if !res.done {
			y += res.content
			break
		}
		y += res.height
		b.cur++
	}
	if !moved {
		return placement{}
	}
	return placement{items: items, height: y, content: y, done: b.cur == len(b.parts), moved: true}
}
