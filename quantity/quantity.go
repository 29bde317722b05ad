// Package quantity implements unit-aware physical scalars for engineering
// calculations.
//
// A Quantity couples an SI magnitude with a Dimension vector and an optional
// preferred display unit. Arithmetic enforces dimensional compatibility:
// adding a length to a pressure fails with a DimensionMismatchError rather
// than producing a number that means nothing.
package quantity

import (
	"fmt"
	"math"
)

// Quantity is a physical value. The zero value is a dimensionless zero.
type Quantity struct {
	si   float64 // magnitude in SI base units
	dim  Dimension
	unit *Unit // preferred display unit, may be nil
}

// DimensionMismatchError reports an operation between incompatible
// dimensions. It is always fatal and never retried by the solvers.
type DimensionMismatchError struct {
	Op   string
	A, B Dimension
}

func (e *DimensionMismatchError) Error() string {
	if e.B == (Dimension{}) && e.Op == "root" {
		return fmt.Sprintf("dimension mismatch: %s of [%s]", e.Op, e.A)
	}
	return fmt.Sprintf("dimension mismatch: [%s] %s [%s]", e.A, e.Op, e.B)
}

// New returns v expressed in unit u.
func New(v float64, u *Unit) Quantity {
	return Quantity{si: v * u.Scale, dim: u.Dim, unit: u}
}

// Scalar returns a dimensionless quantity.
func Scalar(v float64) Quantity {
	return Quantity{si: v}
}

// FromSI returns a quantity from an SI magnitude and a dimension signature.
func FromSI(v float64, dim Dimension) Quantity {
	return Quantity{si: v, dim: dim}
}

// SI returns the magnitude in SI base units.
func (q Quantity) SI() float64 { return q.si }

// Dimension returns the dimension signature.
func (q Quantity) Dimension() Dimension { return q.dim }

// IsDimensionless reports whether q carries no dimension.
func (q Quantity) IsDimensionless() bool { return q.dim.IsDimensionless() }

// Unit returns the preferred display unit, or nil.
func (q Quantity) Unit() *Unit { return q.unit }

// In converts q to unit u.
func (q Quantity) In(u *Unit) (float64, error) {
	if q.dim != u.Dim {
		return 0, &DimensionMismatchError{Op: "convert", A: q.dim, B: u.Dim}
	}
	return q.si / u.Scale, nil
}

// Convert returns q with u as its preferred display unit.
func (q Quantity) Convert(u *Unit) (Quantity, error) {
	if q.dim != u.Dim {
		return Quantity{}, &DimensionMismatchError{Op: "convert", A: q.dim, B: u.Dim}
	}
	return Quantity{si: q.si, dim: q.dim, unit: u}, nil
}

// WithUnitOf returns q displayed in o's preferred unit when dimensions agree.
func (q Quantity) WithUnitOf(o Quantity) Quantity {
	if o.unit != nil && q.dim == o.unit.Dim {
		q.unit = o.unit
	}
	return q
}

// Add returns q + o.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if q.dim != o.dim {
		return Quantity{}, &DimensionMismatchError{Op: "+", A: q.dim, B: o.dim}
	}
	return Quantity{si: q.si + o.si, dim: q.dim, unit: q.displayUnit(o)}, nil
}

// Sub returns q - o.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if q.dim != o.dim {
		return Quantity{}, &DimensionMismatchError{Op: "-", A: q.dim, B: o.dim}
	}
	return Quantity{si: q.si - o.si, dim: q.dim, unit: q.displayUnit(o)}, nil
}

// Mul returns q * o.
func (q Quantity) Mul(o Quantity) Quantity {
	return Quantity{si: q.si * o.si, dim: q.dim.Mul(o.dim)}
}

// Div returns q / o. Division by zero yields ±Inf, as with plain floats.
func (q Quantity) Div(o Quantity) Quantity {
	return Quantity{si: q.si / o.si, dim: q.dim.Div(o.dim)}
}

// Neg returns -q.
func (q Quantity) Neg() Quantity {
	return Quantity{si: -q.si, dim: q.dim, unit: q.unit}
}

// Abs returns |q|.
func (q Quantity) Abs() Quantity {
	return Quantity{si: math.Abs(q.si), dim: q.dim, unit: q.unit}
}

// Pow returns q ** exp. The exponent must be dimensionless; a dimensioned
// base additionally requires an integer exponent so the result stays a
// physical dimension.
func (q Quantity) Pow(exp Quantity) (Quantity, error) {
	if !exp.IsDimensionless() {
		return Quantity{}, &DimensionMismatchError{Op: "**", A: q.dim, B: exp.dim}
	}
	e := exp.si
	if q.IsDimensionless() {
		return Scalar(math.Pow(q.si, e)), nil
	}
	n := int(math.Round(e))
	if math.Abs(e-float64(n)) > 1e-12 {
		return Quantity{}, &DimensionMismatchError{Op: "**", A: q.dim, B: exp.dim}
	}
	return Quantity{si: math.Pow(q.si, e), dim: q.dim.Pow(n)}, nil
}

// Sqrt returns the square root. Each dimension exponent must be even.
func (q Quantity) Sqrt() (Quantity, error) {
	d, err := q.dim.Root(2)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{si: math.Sqrt(q.si), dim: d}, nil
}

// Cmp compares magnitudes; dimensions must agree.
func (q Quantity) Cmp(o Quantity) (int, error) {
	if q.dim != o.dim {
		return 0, &DimensionMismatchError{Op: "cmp", A: q.dim, B: o.dim}
	}
	switch {
	case q.si < o.si:
		return -1, nil
	case q.si > o.si:
		return 1, nil
	default:
		return 0, nil
	}
}

// ApproxEqual reports |q-o| <= tol*max(1, |o|) with matching dimensions.
func (q Quantity) ApproxEqual(o Quantity, tol float64) bool {
	if q.dim != o.dim {
		return false
	}
	return math.Abs(q.si-o.si) <= tol*math.Max(1, math.Abs(o.si))
}

// Sign returns -1, 0 or 1.
func (q Quantity) Sign() int {
	switch {
	case q.si < 0:
		return -1
	case q.si > 0:
		return 1
	default:
		return 0
	}
}

// IsFinite reports whether the magnitude is neither NaN nor infinite.
func (q Quantity) IsFinite() bool {
	return !math.IsNaN(q.si) && !math.IsInf(q.si, 0)
}

func (q Quantity) displayUnit(o Quantity) *Unit {
	if q.unit != nil {
		return q.unit
	}
	return o.unit
}

func (q Quantity) String() string {
	if q.unit != nil {
		return fmt.Sprintf("%g %s", q.si/q.unit.Scale, q.unit.Symbol)
	}
	if q.dim.IsDimensionless() {
		return fmt.Sprintf("%g", q.si)
	}
	return fmt.Sprintf("%g [%s]", q.si, q.dim)
}
