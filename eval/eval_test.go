package eval

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docband/bind"
	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/param"
	"github.com/lvillar/docband/pattern"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFormatter(t *testing.T) *pattern.Formatter {
	t.Helper()
	f, err := pattern.New("en", "$")
	require.NoError(t, err)
	return f
}

// setup binds raw against defs and returns a context ready for phase two.
func setup(t *testing.T, defs []definition.Parameter, raw map[string]any) (*Context, []bind.Deferred, *diag.List) {
	t.Helper()
	var errs diag.List
	schema := param.NewSchema(defs, &errs)
	b := bind.New(bind.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }))
	tree, deferred := b.Bind(schema, raw, false, &errs)
	require.Equal(t, 0, errs.Len(), errs.Err())
	return NewContext(schema, tree, newFormatter(t)), deferred, &errs
}

func itemsDefs(extra ...definition.Parameter) []definition.Parameter {
	defs := []definition.Parameter{
		{ID: "1", Name: "Items", Type: "array", Children: []definition.Parameter{
			{ID: "2", Name: "Amount", Type: "number"},
			{ID: "3", Name: "Qty", Type: "number"},
			{ID: "4", Name: "Line", Type: "computed", Expression: "${Qty} * ${Amount}"},
		}},
	}
	return append(defs, extra...)
}

func items(amounts ...int) []any {
	out := make([]any, len(amounts))
	for i, a := range amounts {
		out[i] = map[string]any{"Amount": a, "Qty": 2}
	}
	return out
}

func TestSumAndAverage(t *testing.T) {
	c, deferred, errs := setup(t, itemsDefs(
		definition.Parameter{ID: "10", Name: "Total", Type: "sum", Expression: "${Items.Amount}"},
		definition.Parameter{ID: "11", Name: "Mean", Type: "average", Expression: "${Items.Amount}"},
	), map[string]any{"Items": items(10, 20, 30)})

	require.NoError(t, ComputeParameters(c, deferred, errs))
	assert.True(t, dec("60").Equal(c.Tree()["Total"].(decimal.Decimal)))
	assert.True(t, dec("20").Equal(c.Tree()["Mean"].(decimal.Decimal)))
}

func TestEmptyAggregatePolicy(t *testing.T) {
	c, deferred, errs := setup(t, itemsDefs(
		definition.Parameter{ID: "10", Name: "Total", Type: "sum", Expression: "${Items.Amount}"},
		definition.Parameter{ID: "11", Name: "Mean", Type: "average", Expression: "${Items.Amount}"},
		definition.Parameter{ID: "12", Name: "MaybeMean", Type: "average", Nullable: true, Expression: "${Items.Amount}"},
	), map[string]any{"Items": []any{}})

	require.NoError(t, ComputeParameters(c, deferred, errs))
	tree := c.Tree()
	assert.True(t, decimal.Zero.Equal(tree["Total"].(decimal.Decimal)))
	assert.True(t, decimal.Zero.Equal(tree["Mean"].(decimal.Decimal)))
	assert.Contains(t, tree, "MaybeMean")
	assert.Nil(t, tree["MaybeMean"])
}

func TestAggregateOverNonNumericIsFatal(t *testing.T) {
	c, deferred, errs := setup(t, []definition.Parameter{
		{ID: "1", Name: "Items", Type: "array", Children: []definition.Parameter{
			{ID: "2", Name: "Label", Type: "string"},
		}},
		{ID: "3", Name: "Total", Type: "sum", Expression: "${Items.Label}"},
	}, map[string]any{"Items": []any{map[string]any{"Label": "x"}}})

	err := ComputeParameters(c, deferred, errs)
	fe, ok := diag.AsFatal(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, diag.MsgInvalidAvgSumExpression, fe.Err.MsgKey)
	assert.Equal(t, "3", fe.Err.ObjectID)
	assert.Equal(t, "Total", fe.Err.Context)
}

func TestAggregateNeedsArrayField(t *testing.T) {
	c, deferred, errs := setup(t, itemsDefs(
		definition.Parameter{ID: "10", Name: "Total", Type: "sum", Expression: "${Items}"},
	), nil)
	fe, ok := diag.AsFatal(ComputeParameters(c, deferred, errs))
	require.True(t, ok)
	assert.Equal(t, diag.MsgInvalidAvgSumExpression, fe.Err.MsgKey)
}

func TestComputedPerRowAndDeclarationOrder(t *testing.T) {
	c, deferred, errs := setup(t, itemsDefs(
		definition.Parameter{ID: "10", Name: "Net", Type: "sum", Expression: "${Items.Line}"},
		definition.Parameter{ID: "11", Name: "Gross", Type: "computed", Expression: "${Net} * 1.2 + (-1)"},
	), map[string]any{"Items": items(10, 5)})

	require.NoError(t, ComputeParameters(c, deferred, errs))
	rows := c.Tree()["Items"].([]map[string]any)
	assert.True(t, dec("20").Equal(rows[0]["Line"].(decimal.Decimal)))
	assert.True(t, dec("10").Equal(rows[1]["Line"].(decimal.Decimal)))
	assert.True(t, dec("30").Equal(c.Tree()["Net"].(decimal.Decimal)))
	assert.True(t, dec("35").Equal(c.Tree()["Gross"].(decimal.Decimal)))
}

func TestComputedInsideMap(t *testing.T) {
	c, deferred, errs := setup(t, []definition.Parameter{
		{ID: "1", Name: "Rate", Type: "number"},
		{ID: "2", Name: "Details", Type: "map", Children: []definition.Parameter{
			{ID: "3", Name: "Base", Type: "number"},
			{ID: "4", Name: "Tax", Type: "computed", Expression: "${Base} * ${Rate}"},
		}},
	}, map[string]any{"Rate": "0,5", "Details": map[string]any{"Base": 8}})

	require.NoError(t, ComputeParameters(c, deferred, errs))
	details := c.Tree()["Details"].(map[string]any)
	assert.True(t, dec("4").Equal(details["Tax"].(decimal.Decimal)))
}

func TestComputedFailuresAreFatal(t *testing.T) {
	cases := map[string]string{
		"division by zero":  "${A} / 0",
		"unknown reference": "${Nope} + 1",
		"syntax":            "${A} +* 2",
		"null operand":      "${N} + 1",
	}
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			c, deferred, errs := setup(t, []definition.Parameter{
				{ID: "1", Name: "A", Type: "number"},
				{ID: "2", Name: "N", Type: "number", Nullable: true},
				{ID: "3", Name: "C", Type: "computed", Expression: expr},
			}, map[string]any{"A": 1})
			fe, ok := diag.AsFatal(ComputeParameters(c, deferred, errs))
			require.True(t, ok)
			assert.Equal(t, diag.MsgInvalidExpression, fe.Err.MsgKey)
			assert.Equal(t, "expression", fe.Err.Field)
		})
	}
}

func TestBrokenParentChainIsRecorded(t *testing.T) {
	c, _, errs := setup(t, itemsDefs(), nil)
	p := &param.Parameter{ID: "9", Name: "X", Type: param.Computed, Expression: "1"}
	err := ComputeParameters(c, []bind.Deferred{{Param: p, Parents: []string{"Missing"}}}, errs)
	require.NoError(t, err)
	require.Equal(t, 1, errs.Len())
	assert.Equal(t, diag.MsgInvalidParameterData, errs.Errors()[0].MsgKey)
}

func TestEvalScalars(t *testing.T) {
	c, deferred, errs := setup(t, []definition.Parameter{
		{ID: "1", Name: "First", Type: "string"},
		{ID: "2", Name: "Count", Type: "number"},
		{ID: "3", Name: "Greeting", Type: "string", Eval: true, Expression: `"Hello " + ${First}`},
		{ID: "4", Name: "Many", Type: "boolean", Eval: true, Expression: "${Count} > 3"},
		{ID: "5", Name: "Double", Type: "number", Eval: true, Expression: "${Count} * 2"},
	}, map[string]any{"First": "Ada", "Count": 4})

	require.NoError(t, ComputeParameters(c, deferred, errs))
	assert.Equal(t, "Hello Ada", c.Tree()["Greeting"])
	assert.Equal(t, true, c.Tree()["Many"])
	assert.True(t, dec("8").Equal(c.Tree()["Double"].(decimal.Decimal)))
}

func TestEvalDateParsesInContextLocation(t *testing.T) {
	var errs diag.List
	schema := param.NewSchema([]definition.Parameter{
		{ID: "1", Name: "Day", Type: "string"},
		{ID: "2", Name: "Due", Type: "date", Eval: true, Expression: `${Day} + " 08:30"`},
	}, &errs)
	tree, deferred := bind.New().Bind(schema, map[string]any{"Day": "2024-03-01"}, false, &errs)
	require.Equal(t, 0, errs.Len(), errs.Err())

	tokyo := time.FixedZone("JST", 9*3600)
	c := NewContext(schema, tree, newFormatter(t), WithLocation(tokyo))
	require.NoError(t, ComputeParameters(c, deferred, &errs))

	due, ok := c.Tree()["Due"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, tokyo, due.Location())
	assert.True(t, due.Equal(time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC)))
}

func TestLookupScopes(t *testing.T) {
	c, _, _ := setup(t, []definition.Parameter{
		{ID: "1", Name: "Name", Type: "string"},
		{ID: "2", Name: "Items", Type: "array", Children: []definition.Parameter{
			{ID: "3", Name: "Name", Type: "string"},
		}},
	}, map[string]any{"Name": "outer", "Items": []any{map[string]any{"Name": "inner"}}})

	v, _, ok := c.Lookup("Name")
	require.True(t, ok)
	assert.Equal(t, "outer", v)

	items, _ := c.Schema().Get("Items")
	c.PushScope(items, c.Tree()["Items"].([]map[string]any)[0])
	v, p, ok := c.Lookup("Name")
	require.True(t, ok)
	assert.Equal(t, "inner", v)
	assert.Equal(t, "3", p.ID)

	c.PopScope()
	c.PopScope()
	v, _, _ = c.Lookup("Name")
	assert.Equal(t, "outer", v, "root scope stays")

	_, _, ok = c.Lookup("Missing")
	assert.False(t, ok)
	_, _, ok = c.Lookup("Name.Child")
	assert.False(t, ok, "scalars have no children")
}

func TestFill(t *testing.T) {
	c, _, _ := setup(t, []definition.Parameter{
		{ID: "1", Name: "Name", Type: "string"},
		{ID: "2", Name: "Amount", Type: "number", Pattern: "#,##0.00"},
		{ID: "3", Name: "Note", Type: "string", Nullable: true},
		{ID: "4", Name: "Details", Type: "map", Children: []definition.Parameter{
			{ID: "5", Name: "City", Type: "string"},
		}},
	}, map[string]any{"Name": "Acme", "Amount": "1234,5", "Details": map[string]any{"City": "Oslo"}})

	out, err := c.Fill("${Name} owes ${Amount}${Note} (${Details.City})", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme owes 1,234.50 (Oslo)", out)

	out, err = c.Fill("${Amount}", "0")
	require.NoError(t, err)
	assert.Equal(t, "1235", out)

	_, err = c.Fill("${Nope}", "")
	var re *RefError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Nope", re.Name)
}

func TestPageCounters(t *testing.T) {
	c, _, _ := setup(t, nil, nil)
	out, err := c.Fill("Page ${page_number} of ${page_count}", "")
	require.NoError(t, err)
	assert.Equal(t, "Page 1 of "+PageCountToken, out)
	assert.Equal(t, "Page 1 of 3", ResolvePageTokens(out, 1, 3))

	c.SetPaginating(true)
	out, err = c.Fill("${page_number}/${page_count}", "")
	require.NoError(t, err)
	assert.True(t, HasPageTokens(out))
	assert.Equal(t, "4/9", ResolvePageTokens(out, 4, 9))
	c.SetPaginating(false)

	c.SetPageCount(3)
	c.SetPageCount(7)
	c.SetPageNumber(2)
	out, err = c.Fill("Page ${page_number} of ${page_count}", "")
	require.NoError(t, err)
	assert.Equal(t, "Page 2 of 3", out, "page count is frozen once set")
}

func TestConditions(t *testing.T) {
	c, _, _ := setup(t, []definition.Parameter{
		{ID: "1", Name: "Amount", Type: "number"},
		{ID: "2", Name: "Name", Type: "string"},
	}, map[string]any{"Amount": "12,5", "Name": "Acme"})

	cases := []struct {
		src  string
		want bool
	}{
		{"${Amount} > 10", true},
		{"${Amount} > 100", false},
		{`${Name} == "Acme" && ${page_number} == 1`, true},
		{"${Name}", true},
	}
	for _, tc := range cases {
		p, err := Compile(tc.src)
		require.NoError(t, err, tc.src)
		got, err := c.Test(p)
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, got, tc.src)
	}

	ok, err := c.Test(nil)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := Compile("${Ghost} > 1")
	require.NoError(t, err)
	_, err = c.Test(p)
	var re *RefError
	assert.ErrorAs(t, err, &re)

	_, err = Compile("${Amount} >")
	assert.Error(t, err)
}

func TestReferenceHelpers(t *testing.T) {
	name, ok := IsReference(" ${Items.Amount} ")
	assert.True(t, ok)
	assert.Equal(t, "Items.Amount", name)
	_, ok = IsReference("${A} + 1")
	assert.False(t, ok)
}
