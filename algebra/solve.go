package algebra

import (
	"math"
	"sort"
)

// maximum polynomial degree the single-unknown path accepts
const maxDegree = 2

// SolveSystem solves eqs (each understood as expr = 0) for the given
// unknowns and returns all real solution tuples, ordered component-wise
// ascending. A tuple lists values in the order of unknowns.
//
// Supported shapes: square linear systems, and a single polynomial equation
// of degree <= 2 in a single unknown. Everything else, including singular
// linear systems, returns ErrNoClosedForm.
func SolveSystem(eqs []Expr, unknowns []string) ([][]float64, error) {
	if len(eqs) == 0 || len(unknowns) == 0 {
		return nil, ErrNoClosedForm
	}

	if sol, ok := solveLinear(eqs, unknowns); ok {
		return [][]float64{sol}, nil
	}

	if len(eqs) == 1 && len(unknowns) == 1 {
		if coeffs, ok := polynomial(eqs[0], unknowns[0]); ok {
			return solvePolynomial(coeffs)
		}
	}

	return nil, ErrNoClosedForm
}

func solveLinear(eqs []Expr, unknowns []string) ([]float64, bool) {
	n := len(unknowns)
	if len(eqs) != n {
		return nil, false
	}
	col := make(map[string]int, n)
	for i, s := range unknowns {
		col[s] = i
	}

	// augmented matrix [A | b] for A·x = b
	m := make([][]float64, n)
	for i, e := range eqs {
		l, ok := linearize(e)
		if !ok {
			return nil, false
		}
		row := make([]float64, n+1)
		for s, v := range l.coeff {
			j, ok := col[s]
			if !ok {
				return nil, false
			}
			row[j] = v
		}
		row[n] = -l.c
		m[i] = row
	}

	// Gaussian elimination with partial pivoting
	for k := 0; k < n; k++ {
		pivot := k
		for i := k + 1; i < n; i++ {
			if math.Abs(m[i][k]) > math.Abs(m[pivot][k]) {
				pivot = i
			}
		}
		if math.Abs(m[pivot][k]) < 1e-12 {
			// singular: redundant or conflicting rows
			return nil, false
		}
		m[k], m[pivot] = m[pivot], m[k]
		for i := k + 1; i < n; i++ {
			f := m[i][k] / m[k][k]
			for j := k; j <= n; j++ {
				m[i][j] -= f * m[k][j]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := m[i][n]
		for j := i + 1; j < n; j++ {
			s -= m[i][j] * x[j]
		}
		x[i] = s / m[i][i]
	}
	return x, true
}

// polynomial extracts coefficients of e as a polynomial in sym, index =
// degree. Reports false past maxDegree or for non-polynomial shapes.
func polynomial(e Expr, sym string) ([]float64, bool) {
	p, ok := polyOf(e, sym)
	if !ok || len(p) > maxDegree+1 {
		return nil, false
	}
	return p, true
}

func polyOf(e Expr, sym string) ([]float64, bool) {
	switch n := e.(type) {
	case Num:
		return []float64{float64(n)}, true
	case Sym:
		if string(n) != sym {
			return nil, false
		}
		return []float64{0, 1}, true
	case Add:
		acc := []float64{0}
		for _, t := range n.Terms {
			p, ok := polyOf(t, sym)
			if !ok {
				return nil, false
			}
			acc = polyAdd(acc, p)
		}
		return acc, true
	case Mul:
		acc := []float64{1}
		for _, f := range n.Factors {
			p, ok := polyOf(f, sym)
			if !ok {
				return nil, false
			}
			acc, ok = polyMul(acc, p)
			if !ok {
				return nil, false
			}
		}
		return acc, true
	case Pow:
		if n.Exp < 0 {
			return nil, false
		}
		base, ok := polyOf(n.Base, sym)
		if !ok {
			return nil, false
		}
		acc := []float64{1}
		for i := 0; i < n.Exp; i++ {
			acc, ok = polyMul(acc, base)
			if !ok {
				return nil, false
			}
		}
		return acc, true
	default:
		return nil, false
	}
}

func polyAdd(a, b []float64) []float64 {
	if len(b) > len(a) {
		a, b = b, a
	}
	out := append([]float64(nil), a...)
	for i, v := range b {
		out[i] += v
	}
	return out
}

func polyMul(a, b []float64) ([]float64, bool) {
	if len(a)+len(b)-1 > maxDegree+1 {
		return nil, false
	}
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out, true
}

func solvePolynomial(coeffs []float64) ([][]float64, error) {
	// trim vanishing leading coefficients
	deg := len(coeffs) - 1
	for deg > 0 && coeffs[deg] == 0 {
		deg--
	}
	switch deg {
	case 0:
		// 0 = c: either an identity or a contradiction, no root to produce
		return nil, ErrNoClosedForm
	case 1:
		return [][]float64{{-coeffs[0] / coeffs[1]}}, nil
	case 2:
		a, b, c := coeffs[2], coeffs[1], coeffs[0]
		disc := b*b - 4*a*c
		if disc < 0 {
			return [][]float64{}, nil
		}
		if disc == 0 {
			return [][]float64{{-b / (2 * a)}}, nil
		}
		sq := math.Sqrt(disc)
		roots := []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)}
		sort.Float64s(roots)
		return [][]float64{{roots[0]}, {roots[1]}}, nil
	default:
		return nil, ErrNoClosedForm
	}
}
