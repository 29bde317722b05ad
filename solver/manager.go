// Package solver resolves the unknowns of a declared equation system.
//
// The manager tries a prioritized list of strategies against a dependency
// analysis computed once per call. Every strategy attempt runs on a clone of
// the variable map; a failing attempt therefore leaves the caller's map
// exactly as it found it, and only a successful attempt is merged back.
package solver

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/engsuite/resolve/debug"
	"github.com/engsuite/resolve/system"
)

// Solve resolves the unknowns of vars against eqs.
//
// Soft failures (stalled, iteration limit, ambiguous solution, no closed
// form, under-determination) are reported in the Result; hard errors
// (dimension mismatches, unbound symbols) abort with an error and leave vars
// untouched.
func Solve(eqs []*system.Equation, vars *system.Variables, opts ...Option) (*Result, error) {
	return SolveContext(context.Background(), eqs, vars, opts...)
}

// SolveSystem validates and solves a declared system.
func SolveSystem(s *system.System, opts ...Option) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return Solve(s.Equations(), s.Variables(), opts...)
}

// SolveContext is Solve with a caller-supplied context. The context is
// consulted between groups and passes; the symbolic backend call itself is
// synchronous.
func SolveContext(ctx context.Context, eqs []*system.Equation, vars *system.Variables, opts ...Option) (*Result, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger

	if len(vars.Unknowns()) == 0 {
		// nothing to do; re-solving after success lands here
		return &Result{
			Variables: vars,
			Success:   true,
			Message:   "all variables already known",
			Method:    MethodNone,
		}, nil
	}

	a, err := system.Analyze(eqs, vars)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("nbEquations", len(eqs)).
		Int("nbUnknowns", len(a.InitialUnknowns())).
		Int("nbOrdered", len(a.Order)).
		Int("nbGroups", len(a.Groups)).
		Msg("dependency analysis")

	var reasons []string
	for _, strat := range cfg.Strategies() {
		if !strat.CanHandle(a) {
			continue
		}
		work := vars.Clone()
		attempt, err := strat.Solve(ctx, eqs, work, a, &cfg)
		if err != nil {
			if debug.Debug {
				log.Error().Err(err).Str("stack", debug.Stack()).Str("strategy", strat.Method()).Msg("strategy aborted")
			}
			return nil, err
		}
		if attempt.Solved {
			if reason, ok := verify(eqs, work, &cfg); !ok {
				log.Debug().Str("strategy", strat.Method()).Str("reason", reason).Msg("verification rejected attempt")
				reasons = append(reasons, fmt.Sprintf("%s: %s", strat.Method(), reason))
				continue
			}
			if err := vars.MergeFrom(work); err != nil {
				return nil, err
			}
			log.Debug().Str("strategy", strat.Method()).Int("nbSteps", len(attempt.Steps)).Msg("solved")
			return &Result{
				Variables: vars,
				Steps:     attempt.Steps,
				Success:   true,
				Message:   fmt.Sprintf("solved %d unknowns", len(attempt.Steps)),
				Method:    strat.Method(),
			}, nil
		}
		log.Debug().Str("strategy", strat.Method()).Str("reason", attempt.Reason).Msg("strategy failed")
		reasons = append(reasons, fmt.Sprintf("%s: %s", strat.Method(), attempt.Reason))
	}

	unsolved := a.Unsolved()
	if len(unsolved) == 0 {
		unsolved = vars.Unknowns()
	}
	msg := fmt.Sprintf("cannot solve for [%s]", strings.Join(unsolved, ", "))
	if len(reasons) > 0 {
		msg += ": " + strings.Join(reasons, "; ")
	}
	return &Result{
		Variables: vars,
		Success:   false,
		Message:   msg,
		Method:    MethodNone,
	}, nil
}

// verify checks every fully-evaluable equation's residual against the
// tolerance before an attempt is committed.
func verify(eqs []*system.Equation, work *system.Variables, cfg *Config) (string, bool) {
	for _, eq := range eqs {
		res, err := eq.Residual(work)
		if err != nil {
			return fmt.Sprintf("residual of %q: %v", eq.Name(), err), false
		}
		lhs, _ := work.Value(eq.LHS())
		if math.Abs(res.SI()) > cfg.Tolerance*math.Max(1, math.Abs(lhs.SI())) {
			return fmt.Sprintf("residual of %q is %g", eq.Name(), res.SI()), false
		}
	}
	return "", true
}
