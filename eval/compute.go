package eval

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lvillar/docband/bind"
	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/param"
)

// ComputeParameters runs phase two: every deferred parameter is evaluated in
// declaration order and written into the tree below its recorded parents. A
// parameter below an array is evaluated once per row with that row in scope,
// so a later parameter sees the results of earlier ones.
//
// Broken parent chains are recorded in errs. Expression failures are fatal
// and returned as *diag.FatalError.
func ComputeParameters(c *Context, deferred []bind.Deferred, errs *diag.List) error {
	cp := &computer{
		Context:  c,
		errs:     errs,
		arith:    make(map[*param.Parameter]*Arithmetic),
		programs: make(map[*param.Parameter]*Program),
	}
	for _, d := range deferred {
		if err := cp.place(d.Param, c.schema, c.root, d.Parents); err != nil {
			return err
		}
	}
	c.logger.Debug("parameters computed", zap.Int("count", len(deferred)))
	return nil
}

type computer struct {
	*Context
	errs     *diag.List
	arith    map[*param.Parameter]*Arithmetic
	programs map[*param.Parameter]*Program
}

func (cp *computer) place(p *param.Parameter, schema *param.Schema, data map[string]any, parents []string) error {
	if len(parents) == 0 {
		v, err := cp.derive(p)
		if err != nil {
			return err
		}
		data[p.Name] = v
		return nil
	}

	owner, ok := schema.Get(parents[0])
	if !ok {
		cp.errs.Addf(p.ID, "name", diag.MsgInvalidParameterData, p.Name)
		return nil
	}
	switch v := data[parents[0]].(type) {
	case map[string]any:
		cp.PushScope(owner, v)
		defer cp.PopScope()
		return cp.place(p, owner.Children, v, parents[1:])
	case []map[string]any:
		for _, row := range v {
			cp.PushScope(owner, row)
			err := cp.place(p, owner.Children, row, parents[1:])
			cp.PopScope()
			if err != nil {
				return err
			}
		}
		return nil
	case nil:
		if owner.Nullable {
			return nil
		}
	}
	cp.errs.Addf(p.ID, "name", diag.MsgInvalidParameterData, p.Name)
	return nil
}

func (cp *computer) derive(p *param.Parameter) (any, error) {
	switch p.Type {
	case param.Sum, param.Average:
		return cp.aggregate(p)
	case param.Computed:
		a, ok := cp.arith[p]
		if !ok {
			var err error
			a, err = ParseArithmetic(p.Expression)
			if err != nil {
				return nil, fatal(p, diag.MsgInvalidExpression, err)
			}
			cp.arith[p] = a
		}
		v, err := a.Eval(cp.Context)
		if err != nil {
			return nil, fatal(p, diag.MsgInvalidExpression, err)
		}
		return v, nil
	}

	prog, ok := cp.programs[p]
	if !ok {
		var err error
		prog, err = Compile(p.Expression)
		if err != nil {
			return nil, fatal(p, diag.MsgInvalidExpression, err)
		}
		cp.programs[p] = prog
	}
	v, err := cp.Scalar(prog, p.Type)
	if err != nil {
		return nil, fatal(p, diag.MsgInvalidExpression, err)
	}
	return v, nil
}

// aggregate sums or averages ${Array.Field}. The sum of an empty array is 0;
// its average is null for a nullable parameter and 0 otherwise.
func (cp *computer) aggregate(p *param.Parameter) (any, error) {
	ref, ok := IsReference(p.Expression)
	dot := strings.LastIndexByte(ref, '.')
	if !ok || dot <= 0 || dot == len(ref)-1 {
		return nil, fatal(p, diag.MsgInvalidAvgSumExpression, nil)
	}
	arrayRef, field := ref[:dot], ref[dot+1:]

	v, err := cp.Value(arrayRef)
	if err != nil {
		return nil, fatal(p, diag.MsgInvalidAvgSumExpression, err)
	}
	rows, ok := v.([]map[string]any)
	if !ok && v != nil {
		return nil, fatal(p, diag.MsgInvalidAvgSumExpression, nil)
	}

	total := decimal.Zero
	for _, row := range rows {
		d, ok := row[field].(decimal.Decimal)
		if !ok {
			return nil, fatal(p, diag.MsgInvalidAvgSumExpression, nil)
		}
		total = total.Add(d)
	}
	if p.Type == param.Sum {
		return total, nil
	}
	if len(rows) == 0 {
		if p.Nullable {
			return nil, nil
		}
		return decimal.Zero, nil
	}
	return total.Div(decimal.NewFromInt(int64(len(rows)))), nil
}

func fatal(p *param.Parameter, msgKey string, cause error) *diag.FatalError {
	fe := diag.Fatalw(p.ID, "expression", msgKey, cause)
	fe.Err.Context = p.Name
	return fe
}
