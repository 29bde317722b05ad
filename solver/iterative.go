package solver

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/engsuite/resolve/expr"
	"github.com/engsuite/resolve/quantity"
	"github.com/engsuite/resolve/system"
)

// IterativeSolver resolves unknowns by repeated direct substitution: every
// pass sweeps the equations in declaration order and evaluates whichever has
// become directly solvable. Self-referential equations whose other inputs
// are known get bounded fixed-point refinement, charged against the same
// iteration budget.
type IterativeSolver struct{}

func (IterativeSolver) Method() string { return MethodIterative }

// CanHandle accepts any analysis with a direct order, or with cyclic groups
// that are single self-referential equations (fixed-point candidates).
// Multi-equation cycles need the simultaneous strategy.
func (IterativeSolver) CanHandle(a *system.Analysis) bool {
	if len(a.Order) > 0 {
		return true
	}
	for _, g := range a.Groups {
		if len(g.Equations) == 1 && len(g.Unknowns) == 1 {
			return true
		}
	}
	return false
}

func (s IterativeSolver) Solve(ctx context.Context, eqs []*system.Equation, vars *system.Variables, a *system.Analysis, cfg *Config) (Attempt, error) {
	log := cfg.Logger
	cache := expr.NewCache()
	var steps []Step

	used := 0
	for used < cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return Attempt{}, err
		}
		used++
		progress := false

		for _, eq := range eqs {
			if v, ok := vars.Get(eq.LHS()); !ok || v.IsKnown() {
				continue
			}

			if eq.IsDirectlySolvable(vars) {
				q, err := cache.Evaluate(eq.RHS(), vars)
				if err != nil {
					return Attempt{}, err
				}
				if err := vars.Assign(eq.LHS(), q); err != nil {
					return Attempt{}, err
				}
				steps = append(steps, Step{Equation: eq.Name(), Symbol: eq.LHS(), Value: q, Method: stepDirect})
				log.Debug().Str("symbol", eq.LHS()).Stringer("value", q).Msg("direct substitution")
				progress = true
				continue
			}

			if fixedPointCandidate(eq, vars) {
				q, converged, lastDelta, consumed, err := s.refine(eq, vars, cfg, cfg.MaxIterations-used)
				used += consumed
				if err != nil {
					return Attempt{}, err
				}
				if !converged {
					return Attempt{Solved: false, Reason: fmt.Sprintf(
						"iteration limit: %q did not converge after %d iterations (last residual %g)",
						eq.LHS(), used, lastDelta)}, nil
				}
				if err := vars.Assign(eq.LHS(), q); err != nil {
					return Attempt{}, err
				}
				steps = append(steps, Step{Equation: eq.Name(), Symbol: eq.LHS(), Value: q, Method: stepFixedPoint})
				log.Debug().Str("symbol", eq.LHS()).Stringer("value", q).Int("iterations", consumed).Msg("fixed-point refinement")
				progress = true
			}
		}

		remaining := vars.Unknowns()
		if len(remaining) == 0 {
			return Attempt{Steps: steps, Solved: true}, nil
		}
		if !progress {
			return Attempt{Solved: false, Reason: fmt.Sprintf(
				"stalled: no equation can produce [%s]", strings.Join(remaining, ", "))}, nil
		}
	}

	return Attempt{Solved: false, Reason: fmt.Sprintf(
		"iteration limit reached after %d passes; unsolved: [%s]",
		cfg.MaxIterations, strings.Join(vars.Unknowns(), ", "))}, nil
}

// fixedPointCandidate reports whether eq is x = f(x, knowns): lhs unknown,
// lhs on the rhs, everything else known.
func fixedPointCandidate(eq *system.Equation, vars *system.Variables) bool {
	lv, ok := vars.Get(eq.LHS())
	if !ok || lv.IsKnown() || !eq.IsSelfReferential() {
		return false
	}
	for _, sym := range eq.RHSReferences() {
		if sym == eq.LHS() {
			continue
		}
		v, ok := vars.Get(sym)
		if !ok || !v.IsKnown() {
			return false
		}
	}
	return true
}

// refine iterates x <- f(x) from a unit seed in the lhs dimension until
// |new-old| falls below the relative tolerance or the budget runs out.
// Dimension mismatches raised by the equation propagate as hard errors;
// divergence to non-finite values is plain non-convergence.
func (IterativeSolver) refine(eq *system.Equation, vars *system.Variables, cfg *Config, budget int) (quantity.Quantity, bool, float64, int, error) {
	lv, _ := vars.Get(eq.LHS())
	old := quantity.FromSI(1, lv.Dimension())
	lastDelta := math.Inf(1)

	consumed := 0
	for consumed < budget {
		consumed++
		next, err := eq.RHS().Evaluate(system.Override(vars, eq.LHS(), old))
		if err != nil {
			return old, false, lastDelta, consumed, err
		}
		if !next.IsFinite() {
			return old, false, math.Inf(1), consumed, nil
		}
		if next.Dimension() != old.Dimension() {
			// seed dimension was off; adopt the equation's and keep going
			old = next
			continue
		}
		diff, _ := next.Sub(old)
		lastDelta = math.Abs(diff.SI())
		if lastDelta <= cfg.Tolerance*math.Max(1, math.Abs(next.SI())) {
			return next, true, lastDelta, consumed, nil
		}
		old = next
	}
	return old, false, lastDelta, consumed, nil
}
