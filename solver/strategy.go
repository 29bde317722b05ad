package solver

import (
	"context"

	"github.com/engsuite/resolve/system"
)

// Attempt is the outcome of one strategy run. Solved=false with a Reason is
// a soft failure: the manager records the reason and moves on to the next
// strategy. Hard errors travel separately as Go errors.
type Attempt struct {
	Steps  []Step
	Solved bool
	Reason string
}

// Strategy is one way of resolving unknowns. Implementations receive a
// private clone of the variable map and may mutate it freely; the manager
// merges the clone back only when the attempt succeeds.
//
// Custom strategies registered via WithStrategies are tried before the
// built-in ones.
type Strategy interface {
	// Method is the name reported in Result.Method on success.
	Method() string
	// CanHandle inspects the dependency analysis and reports whether this
	// strategy could possibly resolve every unknown.
	CanHandle(a *system.Analysis) bool
	// Solve attempts to resolve all unknowns in vars.
	Solve(ctx context.Context, eqs []*system.Equation, vars *system.Variables, a *system.Analysis, cfg *Config) (Attempt, error)
}
