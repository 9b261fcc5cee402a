package eval

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/shopspring/decimal"

	"github.com/lvillar/docband/bind"
)

// ErrDivisionByZero is returned when an arithmetic expression divides by zero.
var ErrDivisionByZero = errors.New("eval: division by zero")

var (
	arithLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Ref", Pattern: `\$\{[^}]*\}`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?|\.\d+`},
		{Name: "Op", Pattern: `[-+*/()]`},
	})

	arithParser = participle.MustBuild[arithExpr](
		participle.Lexer(arithLexer),
		participle.Elide("Whitespace"),
	)
)

// arithExpr is a sum of terms.
type arithExpr struct {
	Left  *arithTerm     `parser:"@@"`
	Right []*arithOpTerm `parser:"@@*"`
}

type arithOpTerm struct {
	Op   string     `parser:"@('+' | '-')"`
	Term *arithTerm `parser:"@@"`
}

// arithTerm is a product of factors.
type arithTerm struct {
	Left  *arithUnary     `parser:"@@"`
	Right []*arithOpUnary `parser:"@@*"`
}

type arithOpUnary struct {
	Op    string      `parser:"@('*' | '/')"`
	Unary *arithUnary `parser:"@@"`
}

type arithUnary struct {
	Minus   *arithUnary   `parser:"  '-' @@"`
	Primary *arithPrimary `parser:"| @@"`
}

type arithPrimary struct {
	Number *string    `parser:"  @Number"`
	Ref    *string    `parser:"| @Ref"`
	Sub    *arithExpr `parser:"| '(' @@ ')'"`
}

// Arithmetic is a parsed computed-parameter expression: numbers, ${...}
// references, + - * /, unary minus and parentheses. It holds no render state
// and can be shared.
type Arithmetic struct {
	src string
	ast *arithExpr
}

// ParseArithmetic parses src.
func ParseArithmetic(src string) (*Arithmetic, error) {
	ast, err := arithParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("eval: parse %q: %w", src, err)
	}
	return &Arithmetic{src: src, ast: ast}, nil
}

// String returns the source expression.
func (a *Arithmetic) String() string { return a.src }

// Eval evaluates the expression against c. Every reference must resolve to a
// number.
func (a *Arithmetic) Eval(c *Context) (decimal.Decimal, error) {
	return a.ast.eval(c)
}

func (e *arithExpr) eval(c *Context) (decimal.Decimal, error) {
	v, err := e.Left.eval(c)
	if err != nil {
		return decimal.Zero, err
	}
	for _, r := range e.Right {
		rv, err := r.Term.eval(c)
		if err != nil {
			return decimal.Zero, err
		}
		if r.Op == "+" {
			v = v.Add(rv)
		} else {
			v = v.Sub(rv)
		}
	}
	return v, nil
}

func (t *arithTerm) eval(c *Context) (decimal.Decimal, error) {
	v, err := t.Left.eval(c)
	if err != nil {
		return decimal.Zero, err
	}
	for _, r := range t.Right {
		rv, err := r.Unary.eval(c)
		if err != nil {
			return decimal.Zero, err
		}
		if r.Op == "*" {
			v = v.Mul(rv)
			continue
		}
		if rv.IsZero() {
			return decimal.Zero, ErrDivisionByZero
		}
		v = v.Div(rv)
	}
	return v, nil
}

func (u *arithUnary) eval(c *Context) (decimal.Decimal, error) {
	if u.Minus != nil {
		v, err := u.Minus.eval(c)
		return v.Neg(), err
	}
	return u.Primary.eval(c)
}

func (p *arithPrimary) eval(c *Context) (decimal.Decimal, error) {
	switch {
	case p.Number != nil:
		return decimal.NewFromString(*p.Number)
	case p.Ref != nil:
		ref := *p.Ref
		name := ref[2 : len(ref)-1]
		v, err := c.Value(name)
		if err != nil {
			return decimal.Zero, err
		}
		if v == nil {
			return decimal.Zero, fmt.Errorf("eval: %s is null", ref)
		}
		d, err := bind.ToDecimal(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("eval: %s: %w", ref, err)
		}
		return d, nil
	case p.Sub != nil:
		return p.Sub.eval(c)
	}
	return decimal.Zero, errors.New("eval: empty operand")
}
