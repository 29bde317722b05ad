package system

import (
	"fmt"
	"slices"

	"github.com/engsuite/resolve/expr"
	"github.com/engsuite/resolve/quantity"
)

// Equation binds one designated variable (the lhs) to an expression it must
// equal. Equations are immutable and named for diagnostics.
type Equation struct {
	name string
	lhs  string
	rhs  expr.Expr
}

// NewEquation returns a named equation lhs = rhs.
func NewEquation(name, lhs string, rhs expr.Expr) *Equation {
	return &Equation{name: name, lhs: lhs, rhs: rhs}
}

// Eq returns an equation named after its lhs symbol.
func Eq(lhs string, rhs expr.Expr) *Equation {
	return NewEquation(lhs, lhs, rhs)
}

// ParseEq builds an equation from the text form of its rhs.
func ParseEq(lhs, rhs string) (*Equation, error) {
	e, err := expr.Parse(rhs)
	if err != nil {
		return nil, fmt.Errorf("equation %s: %w", lhs, err)
	}
	return Eq(lhs, e), nil
}

func (e *Equation) Name() string   { return e.name }
func (e *Equation) LHS() string    { return e.lhs }
func (e *Equation) RHS() expr.Expr { return e.rhs }

// RHSReferences returns the sorted symbols the rhs mentions.
func (e *Equation) RHSReferences() []string {
	return expr.References(e.rhs)
}

// References returns the sorted symbols the equation touches (lhs included).
func (e *Equation) References() []string {
	refs := expr.References(e.rhs)
	if !slices.Contains(refs, e.lhs) {
		refs = append(refs, e.lhs)
		slices.Sort(refs)
	}
	return refs
}

// IsSelfReferential reports whether the lhs also occurs on the rhs.
func (e *Equation) IsSelfReferential() bool {
	return slices.Contains(expr.References(e.rhs), e.lhs)
}

// IsDirectlySolvable reports whether the equation yields its lhs by plain
// evaluation: lhs unknown, lhs absent from the rhs, every rhs reference known.
func (e *Equation) IsDirectlySolvable(vars *Variables) bool {
	lv, ok := vars.Get(e.lhs)
	if !ok || lv.IsKnown() {
		return false
	}
	for _, s := range e.RHSReferences() {
		if s == e.lhs {
			return false
		}
		v, ok := vars.Get(s)
		if !ok || !v.IsKnown() {
			return false
		}
	}
	return true
}

// SolveDirect evaluates the rhs. The caller assigns the result to the lhs.
func (e *Equation) SolveDirect(ctx expr.Context) (quantity.Quantity, error) {
	return e.rhs.Evaluate(ctx)
}

// Residual returns lhs.value - rhs, for post-solve verification.
func (e *Equation) Residual(vars *Variables) (quantity.Quantity, error) {
	lhs, err := vars.Value(e.lhs)
	if err != nil {
		return quantity.Quantity{}, err
	}
	rhs, err := e.rhs.Evaluate(vars)
	if err != nil {
		return quantity.Quantity{}, err
	}
	return lhs.Sub(rhs)
}

func (e *Equation) String() string {
	return fmt.Sprintf("%s = %s", e.lhs, e.rhs)
}
