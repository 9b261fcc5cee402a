// Package eval resolves parameter references against a bound data tree,
// evaluates derived parameters and conditions, and carries the pagination
// counters of one render call.
package eval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lvillar/docband/bind"
	"github.com/lvillar/docband/param"
	"github.com/lvillar/docband/pattern"
)

// Tokens standing in for page counters in text prepared before the page it
// lands on is known. Backends replace them with ResolvePageTokens.
const (
	PageNumberToken = "\x1fPN\x1f"
	PageCountToken  = "\x1fPC\x1f"
)

var refPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

var (
	pageNumberParam = &param.Parameter{ID: param.PageNumber, Name: param.PageNumber, Type: param.Number}
	pageCountParam  = &param.Parameter{ID: param.PageCount, Name: param.PageCount, Type: param.Number}
)

// RefError reports a reference to a parameter that does not exist.
type RefError struct {
	Name string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("eval: unknown parameter %q", e.Name)
}

type scope struct {
	schema *param.Schema
	data   map[string]any
}

// Context is the state of one render call: the bound tree, the schema index,
// the scope stack of the array rows being rendered and the page counters.
// It is owned by a single goroutine.
type Context struct {
	schema    *param.Schema
	root      bind.Tree
	scopes    []scope
	formatter *pattern.Formatter
	logger    *zap.Logger
	loc       *time.Location

	pageNumber int
	pageCount  int
	paginating bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ContextOption {
	return func(c *Context) { c.logger = l }
}

// WithLocation sets the location textual dates produced by eval parameters
// are parsed in. It defaults to time.Local.
func WithLocation(loc *time.Location) ContextOption {
	return func(c *Context) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewContext creates a Context over tree. The page number starts at 1 and the
// page count is unknown until SetPageCount.
func NewContext(schema *param.Schema, tree bind.Tree, f *pattern.Formatter, opts ...ContextOption) *Context {
	c := &Context{
		schema:     schema,
		root:       tree,
		formatter:  f,
		logger:     zap.NewNop(),
		loc:        time.Local,
		pageNumber: 1,
	}
	c.scopes = []scope{{schema: schema, data: tree}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tree returns the bound data tree.
func (c *Context) Tree() bind.Tree { return c.root }

// Schema returns the root parameter schema.
func (c *Context) Schema() *param.Schema { return c.schema }

// Formatter returns the value formatter.
func (c *Context) Formatter() *pattern.Formatter { return c.formatter }

// PushScope makes the fields of row, described by the children of p,
// resolvable by their bare names.
func (c *Context) PushScope(p *param.Parameter, row map[string]any) {
	c.scopes = append(c.scopes, scope{schema: p.Children, data: row})
}

// PopScope removes the innermost scope. The root scope is never removed.
func (c *Context) PopScope() {
	if len(c.scopes) > 1 {
		c.scopes = c.scopes[:len(c.scopes)-1]
	}
}

// PageNumber returns the current 1-based page number.
func (c *Context) PageNumber() int { return c.pageNumber }

// SetPageNumber sets the current page number.
func (c *Context) SetPageNumber(n int) { c.pageNumber = n }

// PageCount returns the total page count, or 0 while it is unknown.
func (c *Context) PageCount() int { return c.pageCount }

// SetPageCount freezes the total page count. Later calls are ignored.
func (c *Context) SetPageCount(n int) {
	if c.pageCount == 0 {
		c.pageCount = n
	}
}

// SetPaginating switches page_number to its token. It is set while the
// content band is prepared, before the page of each element is known.
func (c *Context) SetPaginating(on bool) { c.paginating = on }

// Lookup resolves a reference such as "Name", "Details.Net" or, inside a
// pushed row, a bare field of that row. Inner scopes shadow outer ones.
func (c *Context) Lookup(ref string) (any, *param.Parameter, bool) {
	parts := strings.Split(strings.TrimSpace(ref), ".")
	if len(parts) == 1 {
		switch parts[0] {
		case param.PageNumber:
			if c.paginating {
				return PageNumberToken, pageNumberParam, true
			}
			return decimal.NewFromInt(int64(c.pageNumber)), pageNumberParam, true
		case param.PageCount:
			if c.pageCount == 0 {
				return PageCountToken, pageCountParam, true
			}
			return decimal.NewFromInt(int64(c.pageCount)), pageCountParam, true
		}
	}
	for i := len(c.scopes) - 1; i >= 0; i-- {
		sc := c.scopes[i]
		if _, ok := sc.schema.Get(parts[0]); !ok {
			continue
		}
		p, ok := sc.schema.Lookup(parts...)
		if !ok {
			return nil, nil, false
		}
		v := sc.data[parts[0]]
		for _, name := range parts[1:] {
			m, _ := v.(map[string]any)
			v = m[name]
		}
		return v, p, true
	}
	return nil, nil, false
}

// Value returns the raw value of a reference.
func (c *Context) Value(ref string) (any, error) {
	v, _, ok := c.Lookup(ref)
	if !ok {
		return nil, &RefError{Name: ref}
	}
	return v, nil
}

// Fill replaces every ${...} reference in text with its formatted value.
// pattern overrides the pattern declared on each parameter when set. Null
// values render as the empty string.
func (c *Context) Fill(text, pattern string) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}
	var err error
	out := refPattern.ReplaceAllStringFunc(text, func(m string) string {
		if err != nil {
			return ""
		}
		name := strings.TrimSpace(m[2 : len(m)-1])
		v, p, ok := c.Lookup(name)
		if !ok {
			err = &RefError{Name: name}
			return ""
		}
		if s, isStr := v.(string); isStr && (s == PageCountToken || s == PageNumberToken) {
			return s
		}
		pat := pattern
		if pat == "" {
			pat = p.Pattern
		}
		return c.formatter.Format(v, pat)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// IsReference reports whether text consists of exactly one reference and
// returns the referenced name.
func IsReference(text string) (string, bool) {
	t := strings.TrimSpace(text)
	m := refPattern.FindStringSubmatchIndex(t)
	if m == nil || m[0] != 0 || m[1] != len(t) {
		return "", false
	}
	return strings.TrimSpace(t[m[2]:m[3]]), true
}

// ResolvePageTokens replaces the page tokens in s.
func ResolvePageTokens(s string, number, count int) string {
	if !HasPageTokens(s) {
		return s
	}
	s = strings.ReplaceAll(s, PageNumberToken, strconv.Itoa(number))
	return strings.ReplaceAll(s, PageCountToken, strconv.Itoa(count))
}

// HasPageTokens reports whether s still contains page tokens.
func HasPageTokens(s string) bool {
	return strings.Contains(s, PageNumberToken) || strings.Contains(s, PageCountToken)
}
