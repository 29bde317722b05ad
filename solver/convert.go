package solver

import (
	"math"

	"github.com/engsuite/resolve/algebra"
	"github.com/engsuite/resolve/expr"
	"github.com/engsuite/resolve/system"
)

// toAlgebra translates an expression tree into the symbolic backend's node
// set, over SI magnitudes. Subtrees that reference no group unknown are
// evaluated outright; everything else is translated structurally. ok=false
// means the shape has no translation (the group has no closed form).
func toAlgebra(e expr.Expr, vars *system.Variables, unknowns map[string]struct{}, cache *expr.Cache) (algebra.Expr, bool, error) {
	if !mentionsAny(e, unknowns) {
		q, err := cache.Evaluate(e, vars)
		if err != nil {
			return nil, false, err
		}
		return algebra.Num(q.SI()), true, nil
	}

	switch n := e.(type) {
	case *expr.Var:
		return algebra.Sym(n.Symbol()), true, nil

	case *expr.Binary:
		l, ok, err := toAlgebra(n.Left(), vars, unknowns, cache)
		if !ok || err != nil {
			return nil, ok, err
		}
		switch n.Op() {
		case expr.OpAdd:
			r, ok, err := toAlgebra(n.Right(), vars, unknowns, cache)
			if !ok || err != nil {
				return nil, ok, err
			}
			return algebra.Sum(l, r), true, nil
		case expr.OpSub:
			r, ok, err := toAlgebra(n.Right(), vars, unknowns, cache)
			if !ok || err != nil {
				return nil, ok, err
			}
			return algebra.Subtract(l, r), true, nil
		case expr.OpMul:
			r, ok, err := toAlgebra(n.Right(), vars, unknowns, cache)
			if !ok || err != nil {
				return nil, ok, err
			}
			return algebra.Product(l, r), true, nil
		case expr.OpDiv:
			r, ok, err := toAlgebra(n.Right(), vars, unknowns, cache)
			if !ok || err != nil {
				return nil, ok, err
			}
			return algebra.Product(l, algebra.Pow{Base: r, Exp: -1}), true, nil
		case expr.OpPow:
			// the exponent must reduce to an integer constant
			if mentionsAny(n.Right(), unknowns) {
				return nil, false, nil
			}
			q, err := cache.Evaluate(n.Right(), vars)
			if err != nil {
				return nil, false, err
			}
			p := int(math.Round(q.SI()))
			if !q.IsDimensionless() || math.Abs(q.SI()-float64(p)) > 1e-12 {
				return nil, false, nil
			}
			return algebra.Pow{Base: l, Exp: p}, true, nil
		default:
			return nil, false, nil
		}

	case *expr.Cond:
		// decidable predicate: translate the taken branch only
		if symbolsMention(n.Pred().References(), unknowns) {
			return nil, false, nil
		}
		taken, err := n.Pred().Holds(vars)
		if err != nil {
			return nil, false, err
		}
		if taken {
			return toAlgebra(n.Then(), vars, unknowns, cache)
		}
		return toAlgebra(n.Else(), vars, unknowns, cache)

	case *expr.Call:
		if n.Fn() == expr.FnNeg {
			arg, ok, err := toAlgebra(n.Arg(), vars, unknowns, cache)
			if !ok || err != nil {
				return nil, ok, err
			}
			return algebra.Neg(arg), true, nil
		}
		// transcendental of an unknown: no closed form
		return nil, false, nil

	default:
		return nil, false, nil
	}
}

func mentionsAny(e expr.Expr, unknowns map[string]struct{}) bool {
	return symbolsMention(expr.References(e), unknowns)
}

func symbolsMention(symbols []string, unknowns map[string]struct{}) bool {
	for _, s := range symbols {
		if _, ok := unknowns[s]; ok {
			return true
		}
	}
	return false
}
