package system

import (
	"fmt"

	"github.com/engsuite/resolve/expr"
)

// System is the declaration surface of one problem: an ordered set of
// variables and the equations relating them. Declaration is explicit; there
// is no attribute discovery.
type System struct {
	vars *Variables
	eqs  []*Equation
}

// New returns an empty system.
func New() *System {
	return &System{vars: NewVariables()}
}

// DeclareVariable registers a variable.
func (s *System) DeclareVariable(v *Variable) error {
	return s.vars.Declare(v)
}

// DeclareEquation registers an equation. Several equations may share a lhs;
// the analysis flags the over-determination.
func (s *System) DeclareEquation(e *Equation) error {
	if e.lhs == "" {
		return fmt.Errorf("equation %q has no lhs symbol", e.name)
	}
	s.eqs = append(s.eqs, e)
	return nil
}

// Variables returns the system's variable map. The solver borrows it for the
// duration of one solve call.
func (s *System) Variables() *Variables { return s.vars }

// Equations returns the equations in declaration order.
func (s *System) Equations() []*Equation {
	return append([]*Equation(nil), s.eqs...)
}

// Validate checks that every symbol an equation references is declared.
func (s *System) Validate() error {
	for _, e := range s.eqs {
		for _, sym := range e.References() {
			if _, ok := s.vars.Get(sym); !ok {
				return fmt.Errorf("equation %q: %w", e.Name(), &expr.UnboundVariableError{Symbol: sym})
			}
		}
	}
	return nil
}

// Analyze runs the dependency analysis on the system's current state.
func (s *System) Analyze() (*Analysis, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return Analyze(s.eqs, s.vars)
}
