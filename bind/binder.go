// Package bind validates raw report data against the parameter schema and
// coerces it into a typed tree.
//
// Binding is the first of two phases. It copies every literal parameter into
// a fresh tree and returns the derived parameters (sum, average, computed and
// eval parameters) in declaration order so the evaluator can compute them
// once the tree is complete. Coercion problems are accumulated, never thrown:
// the value is degraded and binding continues.
package bind

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/param"
)

// Tree is a bound data tree. Numbers are decimal.Decimal, dates time.Time,
// arrays []map[string]any, simple arrays []any and maps map[string]any.
type Tree = map[string]any

// Deferred is a derived parameter waiting for phase two, together with the
// names of its ancestor parameters.
type Deferred struct {
	Param   *param.Parameter
	Parents []string
}

// Binder runs phase one. It is stateless between calls and safe for
// concurrent use.
type Binder struct {
	now    func() time.Time
	loc    *time.Location
	logger *zap.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithClock sets the clock used for "now" defaults of date parameters.
func WithClock(now func() time.Time) Option {
	return func(b *Binder) { b.now = now }
}

// WithLocation sets the location textual dates are parsed in.
func WithLocation(loc *time.Location) Option {
	return func(b *Binder) { b.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Binder) { b.logger = l }
}

// New creates a Binder.
func New(opts ...Option) *Binder {
	b := &Binder{now: time.Now, loc: time.Local, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind coerces raw against schema. Errors are appended to errs. The raw map
// and everything reachable from it are left unchanged.
func (b *Binder) Bind(schema *param.Schema, raw map[string]any, isTestData bool, errs *diag.List) (Tree, []Deferred) {
	s := &state{
		Binder:     b,
		isTestData: isTestData,
		errs:       errs,
		seen:       make(map[*param.Parameter]bool),
	}
	before := errs.Len()
	tree := s.scope(schema, raw, nil)
	b.logger.Debug("data bound",
		zap.Int("parameters", len(schema.List())),
		zap.Int("deferred", len(s.deferred)),
		zap.Int("errors", errs.Len()-before),
		zap.Bool("test_data", isTestData))
	return tree, s.deferred
}

type state struct {
	*Binder
	isTestData bool
	errs       *diag.List
	deferred   []Deferred
	seen       map[*param.Parameter]bool
}

func (s *state) scope(schema *param.Schema, src map[string]any, parents []*param.Parameter) map[string]any {
	dest := make(map[string]any, len(schema.List()))
	for _, p := range schema.List() {
		if p.Derived() {
			s.deferParam(p, parents)
			continue
		}
		dest[p.Name] = s.value(p, src[p.Name], parents)
	}
	return dest
}

func (s *state) deferParam(p *param.Parameter, parents []*param.Parameter) {
	// parameters below an array are visited once per row; record them once
	if s.seen[p] {
		return
	}
	s.seen[p] = true
	if p.Expression == "" {
		s.errs.Addf(p.ID, "expression", diag.MsgMissingExpression, p.Name)
		return
	}
	names := make([]string, len(parents))
	for i, pp := range parents {
		names[i] = pp.Name
	}
	s.deferred = append(s.deferred, Deferred{Param: p, Parents: names})
}

func (s *state) errorField() string {
	if s.isTestData {
		return "test_data"
	}
	return "type"
}

func (s *state) value(p *param.Parameter, v any, parents []*param.Parameter) any {
	switch p.Type {
	case param.String, param.Number, param.Boolean, param.Date:
		return s.scalar(p, p.Type, v, parents)

	case param.Image:
		return s.image(p, v)

	case param.Array:
		if v == nil {
			if p.Nullable {
				return nil
			}
			return []map[string]any{}
		}
		rows, ok := asList(v)
		if !ok {
			s.errs.Addf(p.ID, s.errorField(), diag.MsgInvalidArray, p.Name)
			return s.emptyArray(p)
		}
		nested := append(parents[:len(parents):len(parents)], p)
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			row, ok := r.(map[string]any)
			if !ok && r != nil {
				s.errs.Addf(p.ID, s.errorField(), diag.MsgInvalidArray, p.Name)
				continue
			}
			out = append(out, s.scope(p.Children, row, nested))
		}
		return out

	case param.SimpleArray:
		if v == nil {
			if p.Nullable {
				return nil
			}
			return []any{}
		}
		items, ok := asList(v)
		if !ok {
			s.errs.Addf(p.ID, s.errorField(), diag.MsgInvalidArray, p.Name)
			if p.Nullable {
				return nil
			}
			return []any{}
		}
		out := make([]any, len(items))
		for i, item := range items {
			switch p.ArrayItemType {
			case param.String, param.Number, param.Boolean, param.Date:
				out[i] = s.scalar(p, p.ArrayItemType, item, parents)
			default:
				out[i] = item
			}
		}
		return out

	case param.Map:
		if v == nil {
			if p.Nullable {
				return nil
			}
			v = map[string]any{}
		}
		m, ok := v.(map[string]any)
		if !ok {
			s.errs.Addf(p.ID, "type", diag.MsgInvalidMap, p.Name)
			if p.Nullable {
				return nil
			}
			m = nil
		}
		nested := append(parents[:len(parents):len(parents)], p)
		return s.scope(p.Children, m, nested)
	}

	s.logger.Warn("unknown parameter type, value copied as is",
		zap.String("parameter", p.Name), zap.String("type", string(p.Type)))
	return v
}

// image snapshots a reader into bytes so the tree stays immutable and can be
// rendered any number of times.
func (s *state) image(p *param.Parameter, v any) any {
	r, ok := v.(io.Reader)
	if !ok {
		return v
	}
	data, err := io.ReadAll(r)
	if err != nil {
		s.errs.Add(diag.Error{
			ObjectID: p.ID, Field: s.errorField(), MsgKey: diag.MsgLoadingImageFailed,
			Context: p.Name, Info: err.Error(),
		})
		return nil
	}
	return data
}

func (s *state) emptyArray(p *param.Parameter) any {
	if p.Nullable {
		return nil
	}
	return []map[string]any{}
}

// scalar coerces one value of type t. p is the declaring parameter, which for
// simple arrays differs from the item type.
func (s *state) scalar(p *param.Parameter, t param.Type, v any, parents []*param.Parameter) any {
	switch t {
	case param.String:
		if v == nil {
			if p.Nullable {
				return nil
			}
			return ""
		}
		if str, ok := v.(string); ok {
			return str
		}
		return fmt.Sprint(v)

	case param.Number:
		if v == nil {
			return s.zeroNumber(p)
		}
		if isEmptyString(v) && s.isTestData {
			return s.zeroNumber(p)
		}
		d, err := ToDecimal(v)
		if err != nil {
			s.invalid(p, diag.MsgInvalidNumber, parents)
			return s.zeroNumber(p)
		}
		return d

	case param.Boolean:
		if v == nil {
			if p.Nullable {
				return nil
			}
			return false
		}
		return Truthy(v)

	case param.Date:
		switch x := v.(type) {
		case nil:
			return s.nowOrNil(p)
		case time.Time:
			return x
		case string:
			if s.isTestData && isEmptyString(x) {
				return s.nowOrNil(p)
			}
			ts, err := ParseDate(x, s.loc)
			if err != nil {
				s.invalid(p, diag.MsgInvalidDate, parents)
				return s.nowOrNil(p)
			}
			return ts
		}
		s.invalid(p, diag.MsgInvalidDate, parents)
		return s.nowOrNil(p)
	}
	return v
}

func (s *state) zeroNumber(p *param.Parameter) any {
	if p.Nullable {
		return nil
	}
	return decimal.Zero
}

func (s *state) nowOrNil(p *param.Parameter) any {
	if p.Nullable {
		return nil
	}
	return s.now()
}

// invalid records a coercion error. Inside an array or map with test data the
// parent gets an additional errorMsgInvalidTestData naming the failed field.
func (s *state) invalid(p *param.Parameter, msgKey string, parents []*param.Parameter) {
	if len(parents) > 0 && s.isTestData {
		parent := parents[len(parents)-1]
		s.errs.Addf(parent.ID, "test_data", diag.MsgInvalidTestData, p.Name)
		s.errs.Addf(p.ID, "type", msgKey, "")
		return
	}
	s.errs.Addf(p.ID, s.errorField(), msgKey, p.Name)
}
