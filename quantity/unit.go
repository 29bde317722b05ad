package quantity

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is a named scale for a dimension. Scale is the SI magnitude of one
// unit (1 in = 0.0254 m → Scale 0.0254).
type Unit struct {
	Symbol string
	Dim    Dimension
	Scale  float64
}

var units = map[string]*Unit{}

// registration order kept for deterministic listings
var unitOrder []string

// RegisterUnit adds a unit to the registry. Registering an existing symbol
// with a different scale or dimension is an error.
func RegisterUnit(u *Unit) error {
	if prev, ok := units[u.Symbol]; ok {
		if prev.Dim != u.Dim || prev.Scale != u.Scale {
			return fmt.Errorf("unit %q already registered with different definition", u.Symbol)
		}
		return nil
	}
	units[u.Symbol] = u
	unitOrder = append(unitOrder, u.Symbol)
	return nil
}

// LookupUnit returns the registered unit for symbol.
func LookupUnit(symbol string) (*Unit, bool) {
	u, ok := units[symbol]
	return u, ok
}

// Units returns the registered unit symbols in registration order.
func Units() []string {
	out := make([]string, len(unitOrder))
	copy(out, unitOrder)
	return out
}

func mustUnit(symbol string, dim Dimension, scale float64) *Unit {
	u := &Unit{Symbol: symbol, Dim: dim, Scale: scale}
	if err := RegisterUnit(u); err != nil {
		panic(err)
	}
	return u
}

// Built-in units. SI base plus the customary units that show up in
// engineering catalogs.
var (
	Meter      = mustUnit("m", Length, 1)
	Centimeter = mustUnit("cm", Length, 0.01)
	Millimeter = mustUnit("mm", Length, 0.001)
	Inch       = mustUnit("in", Length, 0.0254)
	Foot       = mustUnit("ft", Length, 0.3048)

	Kilogram = mustUnit("kg", Mass, 1)
	Gram     = mustUnit("g", Mass, 0.001)
	Pound    = mustUnit("lb", Mass, 0.45359237)

	Second = mustUnit("s", Time, 1)
	Minute = mustUnit("min", Time, 60)
	Hour   = mustUnit("hr", Time, 3600)

	Kelvin = mustUnit("K", Temperature, 1)

	Newton      = mustUnit("N", Force, 1)
	PoundForce  = mustUnit("lbf", Force, 4.4482216152605)
	Pascal      = mustUnit("Pa", Pressure, 1)
	Kilopascal  = mustUnit("kPa", Pressure, 1000)
	Megapascal  = mustUnit("MPa", Pressure, 1e6)
	PSI         = mustUnit("psi", Pressure, 6894.757293168361)
	KSI         = mustUnit("ksi", Pressure, 6.894757293168361e6)
	Joule       = mustUnit("J", Energy, 1)
	Watt        = mustUnit("W", Power, 1)
	SquareMeter = mustUnit("m2", Area, 1)
	SquareInch  = mustUnit("in2", Area, 0.0254*0.0254)

	Radian = mustUnit("rad", Dimensionless, 1)
	Degree = mustUnit("deg", Dimensionless, 0.017453292519943295)
)

// Parse reads a quantity literal: a number optionally followed by a
// registered unit symbol, e.g. "10 in", "0.125", "6.5 MPa".
func Parse(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quantity{}, fmt.Errorf("empty quantity literal")
	}
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			i++
			continue
		}
		// 'e' may be followed by a sign inside the mantissa; anything else
		// starts the unit symbol
		break
	}
	num, sym := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity literal %q: %w", s, err)
	}
	if sym == "" {
		return Scalar(v), nil
	}
	u, ok := LookupUnit(sym)
	if !ok {
		return Quantity{}, fmt.Errorf("unknown unit %q in %q", sym, s)
	}
	return New(v, u), nil
}
