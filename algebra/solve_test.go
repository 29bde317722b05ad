package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveLinearSystem(t *testing.T) {
	// x + y - 10 = 0 ; x - y - 2 = 0
	eqs := []Expr{
		Sum(Sym("x"), Sym("y"), Num(-10)),
		Sum(Sym("x"), Neg(Sym("y")), Num(-2)),
	}
	sols, err := SolveSystem(eqs, []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.InDelta(t, 6, sols[0][0], 1e-12)
	assert.InDelta(t, 4, sols[0][1], 1e-12)
}

func TestSolveLinearWithCoefficients(t *testing.T) {
	// 2x + 3y = 12 ; 4x - y = 10  ->  x = 3, y = 2
	eqs := []Expr{
		Sum(Product(Num(2), Sym("x")), Product(Num(3), Sym("y")), Num(-12)),
		Sum(Product(Num(4), Sym("x")), Neg(Sym("y")), Num(-10)),
	}
	sols, err := SolveSystem(eqs, []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.InDelta(t, 3, sols[0][0], 1e-12)
	assert.InDelta(t, 2, sols[0][1], 1e-12)
}

func TestSingularSystemHasNoClosedForm(t *testing.T) {
	// x + y = 1 ; 2x + 2y = 2: redundant rows
	eqs := []Expr{
		Sum(Sym("x"), Sym("y"), Num(-1)),
		Sum(Product(Num(2), Sym("x")), Product(Num(2), Sym("y")), Num(-2)),
	}
	_, err := SolveSystem(eqs, []string{"x", "y"})
	require.ErrorIs(t, err, ErrNoClosedForm)
}

func TestSolveQuadratic(t *testing.T) {
	// x^2 - 4 = 0 -> roots sorted ascending
	eq := Sum(Pow{Base: Sym("x"), Exp: 2}, Num(-4))
	sols, err := SolveSystem([]Expr{eq}, []string{"x"})
	require.NoError(t, err)
	require.Len(t, sols, 2)
	assert.InDelta(t, -2, sols[0][0], 1e-12)
	assert.InDelta(t, 2, sols[1][0], 1e-12)

	// x^2 + 1 = 0: no real roots, still a closed form answer
	eq = Sum(Pow{Base: Sym("x"), Exp: 2}, Num(1))
	sols, err = SolveSystem([]Expr{eq}, []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, sols)
}

func TestSolveLinearSingleUnknown(t *testing.T) {
	// 3x - 9 = 0 taken through the polynomial path
	eq := Sum(Product(Num(3), Sym("x")), Num(-9))
	sols, err := SolveSystem([]Expr{eq}, []string{"x"})
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.InDelta(t, 3, sols[0][0], 1e-12)
}

func TestUnsupportedShapes(t *testing.T) {
	// cubic
	_, err := SolveSystem([]Expr{Sum(Pow{Base: Sym("x"), Exp: 3}, Num(-8))}, []string{"x"})
	require.ErrorIs(t, err, ErrNoClosedForm)

	// nonlinear coupling: x*y = 1 ; x - y = 0
	eqs := []Expr{
		Sum(Product(Sym("x"), Sym("y")), Num(-1)),
		Sum(Sym("x"), Neg(Sym("y"))),
	}
	_, err = SolveSystem(eqs, []string{"x", "y"})
	require.ErrorIs(t, err, ErrNoClosedForm)

	// empty input
	_, err = SolveSystem(nil, nil)
	require.ErrorIs(t, err, ErrNoClosedForm)
}

func TestLinearizeRejectsProducts(t *testing.T) {
	_, ok := linearize(Product(Sym("x"), Sym("y")))
	assert.False(t, ok)

	l, ok := linearize(Sum(Product(Num(2), Sym("x")), Num(5)))
	require.True(t, ok)
	assert.InDelta(t, 2, l.coeff["x"], 1e-15)
	assert.InDelta(t, 5, l.c, 1e-15)
}
