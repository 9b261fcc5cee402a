// Package layout places the elements of the report bands on pages.
//
// Preparation resolves every element against the render context once: texts
// are filled and wrapped, conditions evaluated and tables and sections
// expanded into one row per data row. Pagination then asks the content band
// for one page worth of items at a time, given the height left between the
// header and footer of that page, until the band is finished. Header and
// footer are laid out afresh for every page with its page number set.
package layout

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/element"
	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/page"
)

// MaxPages bounds pagination. Content still unfinished after that many pages
// is treated as an endless layout.
const MaxPages = 10000

// ErrTooManyPages is the cause of the fatal error raised at the ceiling.
var ErrTooManyPages = errors.New("layout: too many pages")

// unbounded is the available height of a flattened container.
const unbounded = math.MaxFloat64 / 4

// Page is one laid-out page. Items are positioned in page coordinates.
type Page struct {
	Number  int
	Header  []Item
	Content []Item
	Footer  []Item
}

// Document is the paginated report.
type Document struct {
	Properties *page.Properties
	Pages      []*Page
}

// Band produces the content of consecutive pages.
type Band interface {
	Next(avail float64, page int) (items []Item, done bool, err error)
}

type containerBand struct {
	s *containerState
}

func (b containerBand) Next(avail float64, _ int) ([]Item, bool, error) {
	res := b.s.place(avail, true)
	return res.items, res.done || b.s.finished(), nil
}

// Engine paginates bands for one set of document properties. It holds no
// per-render state and is safe for concurrent use.
type Engine struct {
	props    *page.Properties
	measurer Measurer
	logger   *zap.Logger
	maxPages int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxPages lowers the page ceiling.
func WithMaxPages(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPages = n
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(props *page.Properties, m Measurer, opts ...Option) *Engine {
	e := &Engine{props: props, measurer: m, logger: zap.NewNop(), maxPages: MaxPages}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prepare resolves every element of c without laying it out. It returns the
// first fatal error.
func (e *Engine) Prepare(ec *eval.Context, c *element.Container) error {
	_, err := (&preparer{ec: ec, m: e.measurer}).container(c)
	return err
}

// Paginate lays out the bands page by page. ec must be fresh: the page count
// is frozen into it.
func (e *Engine) Paginate(ctx context.Context, ec *eval.Context, bands *element.Bands) (*Document, error) {
	ec.SetPaginating(true)
	content, err := (&preparer{ec: ec, m: e.measurer}).container(bands.Content)
	ec.SetPaginating(false)
	if err != nil {
		return nil, err
	}

	pages, err := e.paginate(ctx, containerBand{s: content})
	if err != nil {
		return nil, err
	}
	ec.SetPageCount(len(pages))

	doc := &Document{Properties: e.props}
	for i, items := range pages {
		n := i + 1
		ec.SetPageNumber(n)
		pg := &Page{Number: n, Content: items}
		shiftAll(pg.Content, e.props.MarginLeft, e.props.ContentTop(n))
		if e.props.ShowHeader(n) {
			if pg.Header, _, err = e.Flatten(ctx, ec, bands.Header); err != nil {
				return nil, err
			}
			shiftAll(pg.Header, e.props.MarginLeft, e.props.MarginTop)
		}
		if e.props.ShowFooter(n) {
			if pg.Footer, _, err = e.Flatten(ctx, ec, bands.Footer); err != nil {
				return nil, err
			}
			shiftAll(pg.Footer, e.props.MarginLeft, e.props.FooterTop())
		}
		doc.Pages = append(doc.Pages, pg)
	}
	e.logger.Debug("paginated", zap.Int("pages", len(doc.Pages)))
	return doc, nil
}

// paginate runs the page loop. At least one page is returned, so header and
// footer show on an empty document.
func (e *Engine) paginate(ctx context.Context, band Band) ([][]Item, error) {
	var pages [][]Item
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n > e.maxPages {
			return nil, diag.Fatalw(page.ObjectID, "", diag.MsgTooManyPages, ErrTooManyPages)
		}
		items, done, err := band.Next(e.props.AvailableHeight(n), n)
		if err != nil {
			return nil, err
		}
		pages = append(pages, items)
		if done {
			return pages, nil
		}
	}
}

// Flatten prepares c and lays it out at once without a height limit. Items
// are relative to c. It returns the laid-out height.
func (e *Engine) Flatten(ctx context.Context, ec *eval.Context, c *element.Container) ([]Item, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s, err := (&preparer{ec: ec, m: e.measurer, flat: true}).container(c)
	if err != nil {
		return nil, 0, err
	}
	var items []Item
	var height float64
	// a block can refuse to split only when forced, so one pass per
	// unfinished element is always enough
	for i := 0; i <= len(c.Elements) && !s.finished(); i++ {
		res := s.place(unbounded, true)
		shiftAll(res.items, 0, height)
		items = append(items, res.items...)
		height += res.height
	}
	if len(c.Elements) == 0 {
		height = c.Height
	}
	return items, height, nil
}
