package solver_test

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engsuite/resolve/expr"
	"github.com/engsuite/resolve/quantity"
	"github.com/engsuite/resolve/solver"
	"github.com/engsuite/resolve/system"
)

// wallThickness is the pipe wall-thickness problem: a nominal thickness
// derated by a mill tolerance, then an inner diameter from the bore.
func wallThickness(t *testing.T) ([]*system.Equation, *system.Variables) {
	t.Helper()
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Known("D", quantity.New(10, quantity.Inch))))
	require.NoError(t, vars.Declare(system.Known("T_bar", quantity.New(0.147, quantity.Inch))))
	require.NoError(t, vars.Declare(system.Known("U_m", quantity.Scalar(0.125))))
	require.NoError(t, vars.Declare(system.UnknownDim("T", quantity.Length)))
	require.NoError(t, vars.Declare(system.UnknownDim("d", quantity.Length)))

	eqs := []*system.Equation{
		system.Eq("T", expr.Mul(expr.V("T_bar"), expr.Sub(expr.Num(1), expr.V("U_m")))),
		system.Eq("d", expr.Sub(expr.V("D"), expr.Mul(expr.Num(2), expr.V("T")))),
	}
	return eqs, vars
}

func inInches(t *testing.T, vars *system.Variables, sym string) float64 {
	t.Helper()
	q, err := vars.Value(sym)
	require.NoError(t, err)
	v, err := q.In(quantity.Inch)
	require.NoError(t, err)
	return v
}

func TestSolveDirectChain(t *testing.T) {
	eqs, vars := wallThickness(t)

	res, err := solver.Solve(eqs, vars)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, solver.MethodIterative, res.Method)

	assert.InDelta(t, 0.128625, inInches(t, vars, "T"), 1e-12)
	assert.InDelta(t, 9.74275, inInches(t, vars, "d"), 1e-12)

	// T is solvable first, d only after it
	require.Len(t, res.Steps, 2)
	assert.Equal(t, "T", res.Steps[0].Symbol)
	assert.Equal(t, "d", res.Steps[1].Symbol)
	assert.Equal(t, "direct", res.Steps[0].Method)
	assert.Empty(t, vars.Unknowns())
}

func TestSolveSimultaneousGroup(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Unknown("x")))
	require.NoError(t, vars.Declare(system.Unknown("y")))

	// x = 10 - y ; y = x - 2
	eqs := []*system.Equation{
		system.Eq("x", expr.Sub(expr.Num(10), expr.V("y"))),
		system.Eq("y", expr.Sub(expr.V("x"), expr.Num(2))),
	}

	res, err := solver.Solve(eqs, vars)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, solver.MethodSimultaneous, res.Method)

	x, err := vars.Value("x")
	require.NoError(t, err)
	y, err := vars.Value("y")
	require.NoError(t, err)
	assert.InDelta(t, 6, x.SI(), 1e-9)
	assert.InDelta(t, 4, y.SI(), 1e-9)

	require.Len(t, res.Steps, 2)
	assert.Equal(t, "simultaneous", res.Steps[0].Method)
}

func TestSolveUnderDetermined(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Unknown("x")))
	require.NoError(t, vars.Declare(system.Unknown("y")))

	eqs := []*system.Equation{
		system.Eq("x", expr.Add(expr.V("y"), expr.Num(1))),
	}

	res, err := solver.Solve(eqs, vars)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, solver.MethodNone, res.Method)
	assert.Contains(t, res.Message, "x")
	assert.Contains(t, res.Message, "y")

	// the variable map must be untouched
	assert.Equal(t, []string{"x", "y"}, vars.Unknowns())
}

func TestSolveNothingToDo(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Known("a", quantity.Scalar(1))))

	res, err := solver.Solve(nil, vars)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Steps)
	assert.Equal(t, solver.MethodNone, res.Method)
}

func TestSolveIterationLimit(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Unknown("x")))

	// x = x + 1 never converges
	eqs := []*system.Equation{
		system.Eq("x", expr.Add(expr.V("x"), expr.Num(1))),
	}

	res, err := solver.Solve(eqs, vars, solver.WithMaxIterations(10))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "iteration limit")

	v, _ := vars.Get("x")
	assert.False(t, v.IsKnown())
}

func TestSolveFixedPoint(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Unknown("x")))

	// x = cos(x) contracts to the Dottie number
	eqs := []*system.Equation{
		system.Eq("x", expr.Apply(expr.FnCos, expr.V("x"))),
	}

	res, err := solver.Solve(eqs, vars)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, solver.MethodIterative, res.Method)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "fixed-point", res.Steps[0].Method)

	x, err := vars.Value("x")
	require.NoError(t, err)
	assert.InDelta(t, 0.7390851332151607, x.SI(), 1e-9)
}

func TestSolveAmbiguousRoots(t *testing.T) {
	build := func(positive bool) ([]*system.Equation, *system.Variables) {
		vars := system.NewVariables()
		require.NoError(t, vars.Declare(system.Known("A", quantity.Scalar(4))))
		v := system.Unknown("x")
		if positive {
			v.MarkPositive()
		}
		require.NoError(t, vars.Declare(v))
		eqs := []*system.Equation{
			system.Eq("A", expr.Pow(expr.V("x"), expr.Num(2))),
		}
		return eqs, vars
	}

	// both roots of x^2 = 4 are admissible: refuse to guess
	eqs, vars := build(false)
	res, err := solver.Solve(eqs, vars)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "ambiguous solution")
	v, _ := vars.Get("x")
	assert.False(t, v.IsKnown())

	// the positivity constraint disambiguates
	eqs, vars = build(true)
	res, err = solver.Solve(eqs, vars)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, solver.MethodSimultaneous, res.Method)
	x, err := vars.Value("x")
	require.NoError(t, err)
	assert.InDelta(t, 2, x.SI(), 1e-9)
}

func TestSolveIdempotent(t *testing.T) {
	eqs, vars := wallThickness(t)

	res, err := solver.Solve(eqs, vars)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = solver.Solve(eqs, vars)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Steps)
	assert.Equal(t, solver.MethodNone, res.Method)
}

func TestSolveResidualsWithinTolerance(t *testing.T) {
	eqs, vars := wallThickness(t)

	_, err := solver.Solve(eqs, vars)
	require.NoError(t, err)

	for _, eq := range eqs {
		res, err := eq.Residual(vars)
		require.NoError(t, err)
		assert.InDelta(t, 0, res.SI(), solver.DefaultTolerance, eq.Name())
	}
}

func TestSolveDimensionMismatchIsFatal(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.UnknownDim("T", quantity.Length)))

	// a bare number cannot satisfy a length-typed unknown
	eqs := []*system.Equation{system.Eq("T", expr.Num(1))}

	_, err := solver.Solve(eqs, vars)
	var dim *quantity.DimensionMismatchError
	require.ErrorAs(t, err, &dim)

	v, _ := vars.Get("T")
	assert.False(t, v.IsKnown())
}

func TestSolveContextCancellation(t *testing.T) {
	eqs, vars := wallThickness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := solver.SolveContext(ctx, eqs, vars)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"T", "d"}, vars.Unknowns())
}

func TestSolveSystemDeclareAPI(t *testing.T) {
	s := system.New()
	require.NoError(t, s.DeclareVariable(system.Known("D", quantity.New(10, quantity.Inch))))
	require.NoError(t, s.DeclareVariable(system.UnknownDim("r", quantity.Length)))
	rhs, err := expr.Parse("D / 2")
	require.NoError(t, err)
	require.NoError(t, s.DeclareEquation(system.Eq("r", rhs)))

	res, err := solver.SolveSystem(s)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.InDelta(t, 5, inInches(t, s.Variables(), "r"), 1e-12)
}

func TestSolveSystemRejectsDanglingReference(t *testing.T) {
	s := system.New()
	require.NoError(t, s.DeclareVariable(system.Unknown("x")))
	require.NoError(t, s.DeclareEquation(system.Eq("x", expr.V("ghost"))))

	_, err := solver.SolveSystem(s)
	var unbound *expr.UnboundVariableError
	require.ErrorAs(t, err, &unbound)
}

// fixedStrategy always claims the problem and assigns predeclared values.
type fixedStrategy struct {
	values map[string]quantity.Quantity
}

func (fixedStrategy) Method() string                      { return "Fixed" }
func (fixedStrategy) CanHandle(*system.Analysis) bool     { return true }
func (f fixedStrategy) Solve(_ context.Context, _ []*system.Equation, vars *system.Variables, _ *system.Analysis, _ *solver.Config) (solver.Attempt, error) {
	var steps []solver.Step
	for sym, q := range f.values {
		if err := vars.Assign(sym, q); err != nil {
			return solver.Attempt{}, err
		}
		steps = append(steps, solver.Step{Symbol: sym, Value: q, Method: "fixed"})
	}
	return solver.Attempt{Steps: steps, Solved: true}, nil
}

func TestCustomStrategyTriedFirst(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Unknown("x")))
	eqs := []*system.Equation{system.Eq("x", expr.Num(5))}

	res, err := solver.Solve(eqs, vars, solver.WithStrategies(fixedStrategy{
		values: map[string]quantity.Quantity{"x": quantity.Scalar(5)},
	}))
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Fixed", res.Method)
}

func TestCustomStrategyRejectedByVerification(t *testing.T) {
	vars := system.NewVariables()
	require.NoError(t, vars.Declare(system.Unknown("x")))
	eqs := []*system.Equation{system.Eq("x", expr.Num(5))}

	// the wrong answer fails residual verification; the iterative fallback
	// then produces the right one
	res, err := solver.Solve(eqs, vars, solver.WithStrategies(fixedStrategy{
		values: map[string]quantity.Quantity{"x": quantity.Scalar(7)},
	}))
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, solver.MethodIterative, res.Method)
	x, err := vars.Value("x")
	require.NoError(t, err)
	assert.InDelta(t, 5, x.SI(), 1e-12)
}

func TestInvalidOptions(t *testing.T) {
	_, err := solver.Solve(nil, system.NewVariables(), solver.WithTolerance(-1))
	require.Error(t, err)
	_, err = solver.Solve(nil, system.NewVariables(), solver.WithMaxIterations(0))
	require.Error(t, err)
}

func TestSolveDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("wall-thickness solve is deterministic and consistent", prop.ForAll(
		func(tbar, um, bore float64) bool {
			run := func() (float64, float64, bool) {
				vars := system.NewVariables()
				_ = vars.Declare(system.Known("D", quantity.New(bore, quantity.Inch)))
				_ = vars.Declare(system.Known("T_bar", quantity.New(tbar, quantity.Inch)))
				_ = vars.Declare(system.Known("U_m", quantity.Scalar(um)))
				_ = vars.Declare(system.UnknownDim("T", quantity.Length))
				_ = vars.Declare(system.UnknownDim("d", quantity.Length))
				eqs := []*system.Equation{
					system.Eq("T", expr.Mul(expr.V("T_bar"), expr.Sub(expr.Num(1), expr.V("U_m")))),
					system.Eq("d", expr.Sub(expr.V("D"), expr.Mul(expr.Num(2), expr.V("T")))),
				}
				res, err := solver.Solve(eqs, vars)
				if err != nil || !res.Success {
					return 0, 0, false
				}
				tq, _ := vars.Value("T")
				dq, _ := vars.Value("d")
				return tq.SI(), dq.SI(), true
			}

			t1, d1, ok1 := run()
			t2, d2, ok2 := run()
			return ok1 && ok2 && t1 == t2 && d1 == d2
		},
		gen.Float64Range(0.01, 1),
		gen.Float64Range(0, 0.5),
		gen.Float64Range(1, 100),
	))

	properties.Property("failed solve leaves the variable map untouched", prop.ForAll(
		func(limit int) bool {
			vars := system.NewVariables()
			_ = vars.Declare(system.Unknown("x"))
			eqs := []*system.Equation{
				system.Eq("x", expr.Add(expr.V("x"), expr.Num(1))),
			}
			res, err := solver.Solve(eqs, vars, solver.WithMaxIterations(limit))
			if err != nil || res.Success {
				return false
			}
			return len(vars.Unknowns()) == 1
		},
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

func TestVerboseLoggingDoesNotAffectResult(t *testing.T) {
	eqs, vars := wallThickness(t)

	var logged strings.Builder
	log := zerolog.New(&logged).Level(zerolog.DebugLevel)

	res, err := solver.Solve(eqs, vars, solver.WithLogger(log))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, logged.String(), "dependency analysis")
	assert.InDelta(t, 9.74275, inInches(t, vars, "d"), 1e-12)
}
