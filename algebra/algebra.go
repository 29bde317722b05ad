// Package algebra is a restricted symbolic backend for simultaneous
// equation solving. It handles what declarative engineering equations
// actually produce once known values are substituted: linear systems and
// low-degree polynomials in one unknown, over SI float64 magnitudes.
//
// Anything beyond that is answered with ErrNoClosedForm; the backend never
// panics on unsupported input.
package algebra

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoClosedForm signals that the backend cannot produce a closed-form
// solution for the submitted system. It is an expected outcome, not a bug.
var ErrNoClosedForm = errors.New("no closed form")

// Expr is a symbolic expression node. The node set is closed.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Num is a numeric literal.
type Num float64

// Sym is an unknown.
type Sym string

// Add is a sum of terms.
type Add struct{ Terms []Expr }

// Mul is a product of factors.
type Mul struct{ Factors []Expr }

// Pow is an integer power.
type Pow struct {
	Base Expr
	Exp  int
}

func (Num) isExpr() {}
func (Sym) isExpr() {}
func (Add) isExpr() {}
func (Mul) isExpr() {}
func (Pow) isExpr() {}

func (n Num) String() string { return fmt.Sprintf("%g", float64(n)) }
func (s Sym) String() string { return string(s) }

func (a Add) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (m Mul) String() string {
	parts := make([]string, len(m.Factors))
	for i, f := range m.Factors {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, "*") + ")"
}

func (p Pow) String() string { return fmt.Sprintf("%s^%d", p.Base, p.Exp) }

// Sum builds an Add node.
func Sum(terms ...Expr) Expr { return Add{Terms: terms} }

// Product builds a Mul node.
func Product(factors ...Expr) Expr { return Mul{Factors: factors} }

// Neg returns -e.
func Neg(e Expr) Expr { return Mul{Factors: []Expr{Num(-1), e}} }

// Subtract returns a - b, the `lhs - rhs = 0` translation primitive.
func Subtract(a, b Expr) Expr { return Add{Terms: []Expr{a, Neg(b)}} }

// linform is c + Σ coeff[s]*s for an expression linear in its unknowns.
type linform struct {
	coeff map[string]float64
	c     float64
}

func constForm(v float64) linform {
	return linform{coeff: map[string]float64{}, c: v}
}

func (l linform) isConst() bool {
	for _, v := range l.coeff {
		if v != 0 {
			return false
		}
	}
	return true
}

// linearize extracts the linear form of e, reporting false when e is not
// linear in its unknowns.
func linearize(e Expr) (linform, bool) {
	switch n := e.(type) {
	case Num:
		return constForm(float64(n)), true
	case Sym:
		return linform{coeff: map[string]float64{string(n): 1}, c: 0}, true
	case Add:
		acc := constForm(0)
		for _, t := range n.Terms {
			l, ok := linearize(t)
			if !ok {
				return linform{}, false
			}
			acc.c += l.c
			for s, v := range l.coeff {
				acc.coeff[s] += v
			}
		}
		return acc, true
	case Mul:
		acc := constForm(1)
		for _, f := range n.Factors {
			l, ok := linearize(f)
			if !ok {
				return linform{}, false
			}
			switch {
			case l.isConst():
				acc.c *= l.c
				for s := range acc.coeff {
					acc.coeff[s] *= l.c
				}
			case acc.isConst():
				scale := acc.c
				acc = linform{coeff: map[string]float64{}, c: l.c * scale}
				for s, v := range l.coeff {
					acc.coeff[s] = v * scale
				}
			default:
				// product of two unknown-bearing factors
				return linform{}, false
			}
		}
		return acc, true
	case Pow:
		l, ok := linearize(n.Base)
		if !ok {
			return linform{}, false
		}
		if n.Exp == 1 {
			return l, true
		}
		if l.isConst() {
			return constForm(ipow(l.c, n.Exp)), true
		}
		return linform{}, false
	default:
		return linform{}, false
	}
}

func ipow(base float64, exp int) float64 {
	if exp < 0 {
		return 1 / ipow(base, -exp)
	}
	r := 1.0
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
