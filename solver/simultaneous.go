package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/engsuite/resolve/algebra"
	"github.com/engsuite/resolve/expr"
	"github.com/engsuite/resolve/quantity"
	"github.com/engsuite/resolve/system"
)

// SimultaneousSolver resolves coupled groups by handing them to the
// symbolic-algebra backend in `lhs - rhs = 0` form. It is the only strategy
// that resolves cycles. The direct-solve order, when present, is replayed by
// plain evaluation first so a mixed problem still commits as one attempt.
type SimultaneousSolver struct{}

func (SimultaneousSolver) Method() string { return MethodSimultaneous }

// CanHandle requires at least one group, every group well-posed, and no
// unknown outside the partition; anything less either belongs to the
// iterative strategy or is a precise early failure for the manager.
func (SimultaneousSolver) CanHandle(a *system.Analysis) bool {
	if len(a.Groups) == 0 || len(a.Unresolved) > 0 {
		return false
	}
	for _, g := range a.Groups {
		if g.Determinacy != system.WellPosed {
			return false
		}
	}
	return true
}

func (s SimultaneousSolver) Solve(ctx context.Context, eqs []*system.Equation, vars *system.Variables, a *system.Analysis, cfg *Config) (Attempt, error) {
	log := cfg.Logger
	cache := expr.NewCache()
	var steps []Step

	// replay the direct chain so group equations see their known inputs
	for _, i := range a.Order {
		eq := eqs[i]
		q, err := cache.Evaluate(eq.RHS(), vars)
		if err != nil {
			return Attempt{}, err
		}
		if err := vars.Assign(eq.LHS(), q); err != nil {
			return Attempt{}, err
		}
		steps = append(steps, Step{Equation: eq.Name(), Symbol: eq.LHS(), Value: q, Method: stepDirect})
	}

	for _, g := range a.Groups {
		if err := ctx.Err(); err != nil {
			return Attempt{}, err
		}
		groupSteps, reason, err := s.solveGroup(eqs, g, vars, cache, cfg)
		if err != nil {
			return Attempt{}, err
		}
		if reason != "" {
			return Attempt{Solved: false, Reason: reason}, nil
		}
		steps = append(steps, groupSteps...)
		log.Debug().Strs("unknowns", g.Unknowns).Msg("simultaneous group solved")
	}

	if remaining := vars.Unknowns(); len(remaining) > 0 {
		return Attempt{Solved: false, Reason: fmt.Sprintf(
			"unknowns outside any group: [%s]", strings.Join(remaining, ", "))}, nil
	}
	return Attempt{Steps: steps, Solved: true}, nil
}

// solveGroup translates one group to the backend and commits the unique
// consistent root. A non-empty reason is a soft failure.
func (SimultaneousSolver) solveGroup(eqs []*system.Equation, g system.Group, vars *system.Variables, cache *expr.Cache, cfg *Config) ([]Step, string, error) {
	unknowns := map[string]struct{}{}
	for _, sym := range g.Unknowns {
		unknowns[sym] = struct{}{}
	}
	label := strings.Join(g.Unknowns, ", ")

	sys := make([]algebra.Expr, 0, len(g.Equations))
	for _, i := range g.Equations {
		eq := eqs[i]
		lhs, ok, err := toAlgebra(expr.V(eq.LHS()), vars, unknowns, cache)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, fmt.Sprintf("no closed form for group [%s]", label), nil
		}
		rhs, ok, err := toAlgebra(eq.RHS(), vars, unknowns, cache)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, fmt.Sprintf("no closed form for group [%s]", label), nil
		}
		sys = append(sys, algebra.Subtract(lhs, rhs))
	}

	solutions, err := algebra.SolveSystem(sys, g.Unknowns)
	if errors.Is(err, algebra.ErrNoClosedForm) {
		return nil, fmt.Sprintf("no closed form for group [%s]", label), nil
	}
	if err != nil {
		return nil, "", err
	}

	candidates := filterRoots(solutions, g.Unknowns, vars, cfg.Tolerance)
	switch len(candidates) {
	case 0:
		return nil, fmt.Sprintf("no consistent real root for group [%s]", label), nil
	case 1:
		// unique root, commit below
	default:
		return nil, fmt.Sprintf("ambiguous solution for group [%s]: %d admissible roots", label, len(candidates)), nil
	}

	root := candidates[0]
	var steps []Step
	for k, sym := range g.Unknowns {
		v, _ := vars.Get(sym)
		q := quantity.FromSI(root[k], v.Dimension())
		if err := vars.Assign(sym, q); err != nil {
			return nil, "", err
		}
		steps = append(steps, Step{
			Equation: groupEquationFor(eqs, g, sym),
			Symbol:   sym,
			Value:    q,
			Method:   stepSimultaneous,
		})
	}
	return steps, "", nil
}

// filterRoots keeps finite, domain-consistent solution tuples and collapses
// duplicates within tolerance.
func filterRoots(solutions [][]float64, unknowns []string, vars *system.Variables, tol float64) [][]float64 {
	var out [][]float64
next:
	for _, sol := range solutions {
		for k, sym := range unknowns {
			if math.IsNaN(sol[k]) || math.IsInf(sol[k], 0) {
				continue next
			}
			if v, _ := vars.Get(sym); v.Positive() && sol[k] <= 0 {
				continue next
			}
		}
		for _, prev := range out {
			if sameRoot(prev, sol, tol) {
				continue next
			}
		}
		out = append(out, sol)
	}
	return out
}

func sameRoot(a, b []float64, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol*math.Max(1, math.Abs(a[i])) {
			return false
		}
	}
	return true
}

// groupEquationFor attributes a solved symbol to the group equation whose
// lhs it is, falling back to the group's first equation.
func groupEquationFor(eqs []*system.Equation, g system.Group, sym string) string {
	for _, i := range g.Equations {
		if eqs[i].LHS() == sym {
			return eqs[i].Name()
		}
	}
	return eqs[g.Equations[0]].Name()
}
