package eval

import (
	"fmt"
	"strconv"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shopspring/decimal"

	"github.com/lvillar/docband/bind"
	"github.com/lvillar/docband/param"
)

// compileEnv declares the names a condition may use. Values are supplied per
// run by the Context.
var compileEnv = map[string]any{
	"ref": func(string) any { return nil },
}

// Program is a compiled condition or eval expression. ${...} references are
// available as values; numbers compare as floats. A Program is immutable and
// can be shared by concurrent renders.
type Program struct {
	src  string
	prog *vm.Program
}

// Compile compiles src with expr-lang.
func Compile(src string) (*Program, error) {
	rewritten := refPattern.ReplaceAllStringFunc(src, func(m string) string {
		return "ref(" + strconv.Quote(m[2:len(m)-1]) + ")"
	})
	prog, err := expr.Compile(rewritten, expr.Env(compileEnv))
	if err != nil {
		return nil, fmt.Errorf("eval: compile %q: %w", src, err)
	}
	return &Program{src: src, prog: prog}, nil
}

// String returns the source expression.
func (p *Program) String() string { return p.src }

// Run evaluates p against c and returns its raw result. Float and integer
// results are returned as decimals.
func (c *Context) Run(p *Program) (any, error) {
	var refErr error
	env := map[string]any{
		"ref": func(name string) any {
			v, err := c.Value(name)
			if err != nil {
				if refErr == nil {
					refErr = err
				}
				return nil
			}
			return exprValue(v)
		},
	}
	out, err := expr.Run(p.prog, env)
	if refErr != nil {
		return nil, refErr
	}
	if err != nil {
		return nil, fmt.Errorf("eval: run %q: %w", p.src, err)
	}
	switch x := out.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	}
	return out, nil
}

// Test evaluates p as a condition. A nil program is true.
func (c *Context) Test(p *Program) (bool, error) {
	if p == nil {
		return true, nil
	}
	v, err := c.Run(p)
	if err != nil {
		return false, err
	}
	return bind.Truthy(v), nil
}

// Scalar evaluates p and coerces the result to t.
func (c *Context) Scalar(p *Program, t param.Type) (any, error) {
	v, err := c.Run(p)
	if err != nil || v == nil {
		return nil, err
	}
	switch t {
	case param.Number:
		return bind.ToDecimal(v)
	case param.Boolean:
		return bind.Truthy(v), nil
	case param.Date:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			return bind.ParseDate(x, c.loc)
		}
		return nil, fmt.Errorf("eval: %T is not a date", v)
	case param.String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return c.formatter.Format(v, ""), nil
	}
	return v, nil
}

func exprValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case []map[string]any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	}
	return v
}
