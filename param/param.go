// Package param models the typed parameter schema of a report.
//
// A Schema is built once from the definition and is read-only afterwards, so
// it can be shared by concurrent renders of the same report.
package param

import (
	"strings"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
)

// Type is the declared type of a parameter.
type Type string

const (
	String      Type = "string"
	Number      Type = "number"
	Boolean     Type = "boolean"
	Date        Type = "date"
	Image       Type = "image"
	Array       Type = "array"
	SimpleArray Type = "simple_array"
	Map         Type = "map"
	Sum         Type = "sum"
	Average     Type = "average"
	Computed    Type = "computed"
)

// Names of the parameters every report can reference.
const (
	PageNumber = "page_number"
	PageCount  = "page_count"
)

// Parameter is one node of the schema.
type Parameter struct {
	ID            string
	Name          string
	Type          Type
	ArrayItemType Type // item type of a simple_array
	Nullable      bool
	Eval          bool // scalar computed from Expression
	Pattern       string
	Expression    string
	TestData      string
	Children      *Schema // array and map children, nil otherwise
}

// Derived reports whether the value is computed in the second binding phase
// instead of being read from the data payload.
func (p *Parameter) Derived() bool {
	switch p.Type {
	case Sum, Average, Computed:
		return true
	case String, Number, Boolean, Date:
		return p.Eval
	}
	return false
}

// HasChildren reports whether p owns a nested schema.
func (p *Parameter) HasChildren() bool {
	return p.Type == Array || p.Type == Map
}

// ValueType is the type of the value a parameter holds once bound. Derived
// aggregates produce numbers; eval scalars keep their declared type.
func (p *Parameter) ValueType() Type {
	switch p.Type {
	case Sum, Average, Computed:
		return Number
	}
	return p.Type
}

// Schema is an ordered list of parameters with a name index. Order matters:
// derived parameters are evaluated in declaration order.
type Schema struct {
	list   []*Parameter
	byName map[string]*Parameter
}

// NewSchema builds a schema from definition parameters. Duplicate names in
// the same scope are recorded in errs; the later declaration wins the index
// but both stay in the ordered list.
func NewSchema(defs []definition.Parameter, errs *diag.List) *Schema {
	s := &Schema{byName: make(map[string]*Parameter, len(defs))}
	for _, d := range defs {
		p := &Parameter{
			ID:            d.ID.String(),
			Name:          d.Name,
			Type:          parseType(d.Type),
			ArrayItemType: parseType(d.ArrayItemType),
			Nullable:      d.Nullable,
			Eval:          d.Eval,
			Pattern:       d.Pattern,
			Expression:    strings.TrimSpace(d.Expression),
			TestData:      d.TestData,
		}
		if !p.Type.valid() {
			errs.Addf(p.ID, "type", diag.MsgInvalidType, d.Type)
		}
		if p.Type == SimpleArray && !p.ArrayItemType.scalar() {
			errs.Addf(p.ID, "arrayItemType", diag.MsgInvalidType, d.ArrayItemType)
		}
		if p.HasChildren() {
			p.Children = NewSchema(d.Children, errs)
		}
		if _, dup := s.byName[p.Name]; dup {
			errs.Addf(p.ID, "name", diag.MsgDuplicateParameter, p.Name)
		}
		s.byName[p.Name] = p
		s.list = append(s.list, p)
	}
	return s
}

func parseType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return String
	}
	return t
}

func (t Type) scalar() bool {
	switch t {
	case String, Number, Boolean, Date:
		return true
	}
	return false
}

func (t Type) valid() bool {
	switch t {
	case Image, Array, SimpleArray, Map, Sum, Average, Computed:
		return true
	}
	return t.scalar()
}

// List returns the parameters in declaration order.
func (s *Schema) List() []*Parameter {
	if s == nil {
		return nil
	}
	return s.list
}

// Get returns the parameter called name in this scope.
func (s *Schema) Get(name string) (*Parameter, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byName[name]
	return p, ok
}

// Lookup walks a dotted path ("Invoice.Amount") through nested children.
func (s *Schema) Lookup(path ...string) (*Parameter, bool) {
	cur := s
	var p *Parameter
	for i, name := range path {
		var ok bool
		p, ok = cur.Get(name)
		if !ok {
			return nil, false
		}
		if i < len(path)-1 {
			if p.Children == nil {
				return nil, false
			}
			cur = p.Children
		}
	}
	return p, p != nil
}

// Pattern returns the pattern of parameter name, or of the child called name
// beneath parent when parent is set. An empty string means no pattern.
func (s *Schema) Pattern(name, parent string) string {
	if parent != "" {
		pp, ok := s.Get(parent)
		if !ok {
			return ""
		}
		if c, ok := pp.Children.Get(name); ok {
			return c.Pattern
		}
		return ""
	}
	if p, ok := s.Get(name); ok {
		return p.Pattern
	}
	return ""
}

// InheritPatterns copies the patterns of saved into the parameters of s that
// declare none. Children are matched beneath the name of their parent. It
// must run before s is shared.
func (s *Schema) InheritPatterns(saved *Schema) {
	s.inherit(saved, "")
}

func (s *Schema) inherit(saved *Schema, parent string) {
	for _, p := range s.List() {
		if p.Pattern == "" {
			p.Pattern = saved.Pattern(p.Name, parent)
		}
		if p.Children != nil {
			p.Children.inherit(saved, p.Name)
		}
	}
}
