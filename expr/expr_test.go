package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engsuite/resolve/quantity"
)

// testCtx is a minimal evaluation context: a bound symbol maps to a value;
// a bound-but-unknown symbol maps to a nil entry.
type testCtx map[string]*quantity.Quantity

func (c testCtx) Value(symbol string) (quantity.Quantity, error) {
	q, ok := c[symbol]
	if !ok {
		return quantity.Quantity{}, &UnboundVariableError{Symbol: symbol}
	}
	if q == nil {
		return quantity.Quantity{}, &UnknownValueError{Symbol: symbol}
	}
	return *q, nil
}

func qp(q quantity.Quantity) *quantity.Quantity { return &q }

func TestEvaluate(t *testing.T) {
	ctx := testCtx{
		"T_bar": qp(quantity.New(0.147, quantity.Inch)),
		"U_m":   qp(quantity.Scalar(0.125)),
		"D":     qp(quantity.New(10, quantity.Inch)),
	}

	// T = T_bar * (1 - U_m)
	e := Mul(V("T_bar"), Sub(Num(1), V("U_m")))
	q, err := e.Evaluate(ctx)
	require.NoError(t, err)
	in, err := q.In(quantity.Inch)
	require.NoError(t, err)
	assert.InDelta(t, 0.128625, in, 1e-12)

	// d = D - 2*T
	e = Sub(V("D"), Mul(Num(2), Const(q)))
	q, err = e.Evaluate(ctx)
	require.NoError(t, err)
	in, err = q.In(quantity.Inch)
	require.NoError(t, err)
	assert.InDelta(t, 9.74275, in, 1e-12)
}

func TestEvaluateErrors(t *testing.T) {
	ctx := testCtx{"x": nil}

	_, err := V("missing").Evaluate(ctx)
	var unbound *UnboundVariableError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "missing", unbound.Symbol)

	_, err = Add(V("x"), Num(1)).Evaluate(ctx)
	var unknown *UnknownValueError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "x", unknown.Symbol)

	// dimension mismatch surfaces from the quantity layer
	_, err = Add(Const(quantity.New(1, quantity.Meter)), Num(1)).Evaluate(ctx)
	var dim *quantity.DimensionMismatchError
	require.ErrorAs(t, err, &dim)
}

func TestConditionalShortCircuit(t *testing.T) {
	// the untaken branch references an unknown variable and must not be
	// evaluated
	ctx := testCtx{
		"x": qp(quantity.Scalar(3)),
		"y": nil,
	}
	e := If(Cmp(CmpGT, V("x"), Num(0)), V("x"), V("y"))
	q, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 3, q.SI(), 1e-12)

	e = If(Cmp(CmpLT, V("x"), Num(0)), V("y"), Num(-1))
	q, err = e.Evaluate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, -1, q.SI(), 1e-12)
}

func TestFunctions(t *testing.T) {
	ctx := testCtx{}

	q, err := Apply(FnCos, Num(0)).Evaluate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1, q.SI(), 1e-12)

	// sin of an angle given in degrees: the unit is a dimensionless scale
	q, err = Apply(FnSin, Const(quantity.New(30, quantity.Degree))).Evaluate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, q.SI(), 1e-12)

	// transcendental of a dimensioned argument is a hard error
	_, err = Apply(FnSin, Const(quantity.New(1, quantity.Meter))).Evaluate(ctx)
	require.Error(t, err)

	// sqrt of an area is a length
	q, err = Apply(FnSqrt, Const(quantity.New(9, quantity.SquareMeter))).Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, quantity.Length, q.Dimension())
	assert.InDelta(t, 3, q.SI(), 1e-12)
}

func TestReferences(t *testing.T) {
	e := Mul(Add(V("b"), V("a")), Sub(V("c"), V("a")))
	assert.Equal(t, []string{"a", "b", "c"}, References(e))
	assert.False(t, e.IsConstant())
	assert.True(t, Mul(Num(2), Num(3)).IsConstant())

	cond := If(Cmp(CmpGE, V("p"), Num(0)), V("q"), Num(0))
	assert.Equal(t, []string{"p", "q"}, References(cond))
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
		fail bool
	}{
		{in: "T_bar * (1 - U_m)", want: "(T_bar * (1 - U_m))"},
		{in: "D - 2*T", want: "(D - (2 * T))"},
		{in: "a + b * c", want: "(a + (b * c))"},
		{in: "2^3^2", want: "(2 ^ (3 ^ 2))"}, // right associative
		{in: "-x + 1", want: "(-(x) + 1)"},
		{in: "sqrt(A)", want: "sqrt(A)"},
		{in: "if(x > 0, x, 0)", want: "if(x > 0, x, 0)"},
		{in: "10 in + d", want: "(10 in + d)"},
		{in: "x +", fail: true},
		{in: "(a", fail: true},
		{in: "1 ? 2", fail: true},
	}
	for _, tc := range cases {
		e, err := Parse(tc.in)
		if tc.fail {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, e.String(), tc.in)
	}
}

func TestParseUnitLiteral(t *testing.T) {
	e, err := Parse("0.5 * 10 in")
	require.NoError(t, err)
	q, err := e.Evaluate(testCtx{})
	require.NoError(t, err)
	in, err := q.In(quantity.Inch)
	require.NoError(t, err)
	assert.InDelta(t, 5, in, 1e-12)

	// an identifier that is not a unit stays a variable reference
	e, err = Parse("2 * zz")
	require.NoError(t, err)
	assert.Equal(t, []string{"zz"}, References(e))
}
