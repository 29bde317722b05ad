// Package system assembles equation-solving problems: variables, equations,
// the declaration API and the dependency analysis that stratifies a problem
// into a directly-solvable order and coupled simultaneous groups.
package system

import (
	"fmt"

	"github.com/engsuite/resolve/expr"
	"github.com/engsuite/resolve/quantity"
)

// Variable is a named quantity in a problem. It starts either known (with a
// value) or unknown (a placeholder), and flips unknown→known at most once,
// by a solver. It never reverts.
type Variable struct {
	symbol   string
	name     string
	dim      quantity.Dimension
	dimSet   bool
	positive bool

	value quantity.Quantity
	known bool
}

// Known declares a variable with a value.
func Known(symbol string, q quantity.Quantity) *Variable {
	return &Variable{symbol: symbol, value: q, known: true, dim: q.Dimension(), dimSet: true}
}

// Unknown declares a placeholder variable with no dimension expectation.
func Unknown(symbol string) *Variable {
	return &Variable{symbol: symbol}
}

// UnknownDim declares a placeholder whose eventual value must carry dim.
func UnknownDim(symbol string, dim quantity.Dimension) *Variable {
	return &Variable{symbol: symbol, dim: dim, dimSet: true}
}

// WithName attaches a display name and returns the variable.
func (v *Variable) WithName(name string) *Variable {
	v.name = name
	return v
}

// MarkPositive constrains the variable to positive magnitudes. Simultaneous
// root selection discards candidates that violate it.
func (v *Variable) MarkPositive() *Variable {
	v.positive = true
	return v
}

func (v *Variable) Symbol() string { return v.symbol }

// Name returns the display name, falling back to the symbol.
func (v *Variable) Name() string {
	if v.name != "" {
		return v.name
	}
	return v.symbol
}

func (v *Variable) IsKnown() bool  { return v.known }
func (v *Variable) Positive() bool { return v.positive }

// Dimension returns the declared or acquired dimension signature.
func (v *Variable) Dimension() quantity.Dimension { return v.dim }

// Value returns the variable's value, or an UnknownValueError while unsolved.
func (v *Variable) Value() (quantity.Quantity, error) {
	if !v.known {
		return quantity.Quantity{}, &expr.UnknownValueError{Symbol: v.symbol}
	}
	return v.value, nil
}

func (v *Variable) set(q quantity.Quantity) error {
	if v.known {
		return fmt.Errorf("variable %q is already known", v.symbol)
	}
	if v.dimSet && q.Dimension() != v.dim {
		return &quantity.DimensionMismatchError{Op: "assign " + v.symbol, A: v.dim, B: q.Dimension()}
	}
	v.value = q
	v.dim = q.Dimension()
	v.dimSet = true
	v.known = true
	return nil
}

func (v *Variable) clone() *Variable {
	c := *v
	return &c
}

// Variables is the symbol→Variable map of one problem, iterated in
// declaration order so solving is deterministic. It implements expr.Context
// and expr.Revisioned; the revision moves on every assignment, which lets
// the eval cache drop stale results.
type Variables struct {
	order []string
	vars  map[string]*Variable
	rev   uint64
}

// NewVariables returns an empty set.
func NewVariables() *Variables {
	return &Variables{vars: map[string]*Variable{}}
}

// Declare adds a variable. Duplicate symbols are an error.
func (vs *Variables) Declare(v *Variable) error {
	if _, ok := vs.vars[v.symbol]; ok {
		return fmt.Errorf("variable %q declared twice", v.symbol)
	}
	vs.vars[v.symbol] = v
	vs.order = append(vs.order, v.symbol)
	return nil
}

// Get returns the variable for symbol.
func (vs *Variables) Get(symbol string) (*Variable, bool) {
	v, ok := vs.vars[symbol]
	return v, ok
}

// Value implements expr.Context.
func (vs *Variables) Value(symbol string) (quantity.Quantity, error) {
	v, ok := vs.vars[symbol]
	if !ok {
		return quantity.Quantity{}, &expr.UnboundVariableError{Symbol: symbol}
	}
	return v.Value()
}

// Revision implements expr.Revisioned.
func (vs *Variables) Revision() uint64 { return vs.rev }

// Assign gives an unknown variable its value, exactly once.
func (vs *Variables) Assign(symbol string, q quantity.Quantity) error {
	v, ok := vs.vars[symbol]
	if !ok {
		return &expr.UnboundVariableError{Symbol: symbol}
	}
	if err := v.set(q); err != nil {
		return err
	}
	vs.rev++
	return nil
}

// Len returns the number of declared variables.
func (vs *Variables) Len() int { return len(vs.order) }

// Symbols returns all symbols in declaration order.
func (vs *Variables) Symbols() []string {
	out := make([]string, len(vs.order))
	copy(out, vs.order)
	return out
}

// Unknowns returns unsolved symbols in declaration order.
func (vs *Variables) Unknowns() []string {
	var out []string
	for _, s := range vs.order {
		if !vs.vars[s].known {
			out = append(out, s)
		}
	}
	return out
}

// index returns the declaration position of symbol.
func (vs *Variables) index(symbol string) (int, bool) {
	for i, s := range vs.order {
		if s == symbol {
			return i, true
		}
	}
	return 0, false
}

// Clone deep-copies the set. Strategy attempts run against a clone and merge
// back only on success, so a failed attempt is fully inert.
func (vs *Variables) Clone() *Variables {
	c := &Variables{
		order: append([]string(nil), vs.order...),
		vars:  make(map[string]*Variable, len(vs.vars)),
		rev:   vs.rev,
	}
	for s, v := range vs.vars {
		c.vars[s] = v.clone()
	}
	return c
}

// MergeFrom commits assignments made on a clone: every variable unknown here
// but known in o is assigned o's value.
func (vs *Variables) MergeFrom(o *Variables) error {
	for _, s := range vs.order {
		mine := vs.vars[s]
		theirs, ok := o.vars[s]
		if !ok || mine.known || !theirs.known {
			continue
		}
		if err := vs.Assign(s, theirs.value); err != nil {
			return err
		}
	}
	return nil
}

// Override returns an evaluation context that shadows one symbol with a trial
// value. Fixed-point refinement uses it to probe self-referential equations
// without touching the variable. The returned context is deliberately not
// revisioned, so full-tree memoization never applies to trial values.
func Override(base *Variables, symbol string, q quantity.Quantity) expr.Context {
	return &overlay{base: base, symbol: symbol, q: q}
}

type overlay struct {
	base   *Variables
	symbol string
	q      quantity.Quantity
}

func (o *overlay) Value(symbol string) (quantity.Quantity, error) {
	if symbol == o.symbol {
		return o.q, nil
	}
	return o.base.Value(symbol)
}
