package quantity

import (
	"fmt"
	"strings"
)

// Dimension is a vector of base-dimension exponents, ordered as
// length, mass, time, current, temperature, amount, luminosity.
type Dimension [7]int8

// Base dimension indices into a Dimension vector.
const (
	dimLength = iota
	dimMass
	dimTime
	dimCurrent
	dimTemperature
	dimAmount
	dimLuminosity
)

var dimSymbols = [7]string{"L", "M", "T", "I", "Θ", "N", "J"}

// Common dimension signatures.
var (
	Dimensionless = Dimension{}
	Length        = Dimension{dimLength: 1}
	Mass          = Dimension{dimMass: 1}
	Time          = Dimension{dimTime: 1}
	Current       = Dimension{dimCurrent: 1}
	Temperature   = Dimension{dimTemperature: 1}
	Amount        = Dimension{dimAmount: 1}
	Luminosity    = Dimension{dimLuminosity: 1}

	Area         = Dimension{dimLength: 2}
	Volume       = Dimension{dimLength: 3}
	Velocity     = Dimension{dimLength: 1, dimTime: -1}
	Acceleration = Dimension{dimLength: 1, dimTime: -2}
	Force        = Dimension{dimLength: 1, dimMass: 1, dimTime: -2}
	Pressure     = Dimension{dimLength: -1, dimMass: 1, dimTime: -2}
	Energy       = Dimension{dimLength: 2, dimMass: 1, dimTime: -2}
	Power        = Dimension{dimLength: 2, dimMass: 1, dimTime: -3}
)

// IsDimensionless reports whether all exponents are zero.
func (d Dimension) IsDimensionless() bool {
	return d == Dimension{}
}

// Mul returns the dimension of a product.
func (d Dimension) Mul(o Dimension) Dimension {
	var r Dimension
	for i := range d {
		r[i] = d[i] + o[i]
	}
	return r
}

// Div returns the dimension of a quotient.
func (d Dimension) Div(o Dimension) Dimension {
	var r Dimension
	for i := range d {
		r[i] = d[i] - o[i]
	}
	return r
}

// Pow returns the dimension raised to an integer power.
func (d Dimension) Pow(n int) Dimension {
	var r Dimension
	for i := range d {
		r[i] = d[i] * int8(n)
	}
	return r
}

// Root returns the dimension of the n-th root, or an error when an exponent
// is not divisible by n (the root would not be a physical dimension).
func (d Dimension) Root(n int) (Dimension, error) {
	var r Dimension
	for i := range d {
		if int(d[i])%n != 0 {
			return Dimension{}, &DimensionMismatchError{Op: "root", A: d}
		}
		r[i] = d[i] / int8(n)
	}
	return r, nil
}

func (d Dimension) String() string {
	if d.IsDimensionless() {
		return "1"
	}
	var sb strings.Builder
	for i, e := range d {
		if e == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('·')
		}
		if e == 1 {
			sb.WriteString(dimSymbols[i])
		} else {
			fmt.Fprintf(&sb, "%s^%d", dimSymbols[i], e)
		}
	}
	return sb.String()
}
