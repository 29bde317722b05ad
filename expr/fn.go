package expr

import (
	"fmt"
	"math"

	"github.com/engsuite/resolve/quantity"
)

func applyFn(fn Fn, v quantity.Quantity) (quantity.Quantity, error) {
	switch fn {
	case FnNeg:
		return v.Neg(), nil
	case FnAbs:
		return v.Abs(), nil
	case FnSqrt:
		return v.Sqrt()
	}

	// everything below is transcendental and needs a pure number
	if !v.IsDimensionless() {
		return quantity.Quantity{}, &quantity.DimensionMismatchError{
			Op: fn.String(), A: v.Dimension(), B: quantity.Dimensionless,
		}
	}
	x := v.SI()
	switch fn {
	case FnSin:
		return quantity.Scalar(math.Sin(x)), nil
	case FnCos:
		return quantity.Scalar(math.Cos(x)), nil
	case FnTan:
		return quantity.Scalar(math.Tan(x)), nil
	case FnAsin:
		return quantity.Scalar(math.Asin(x)), nil
	case FnAcos:
		return quantity.Scalar(math.Acos(x)), nil
	case FnAtan:
		return quantity.Scalar(math.Atan(x)), nil
	case FnLn:
		return quantity.Scalar(math.Log(x)), nil
	case FnLog10:
		return quantity.Scalar(math.Log10(x)), nil
	case FnExp:
		return quantity.Scalar(math.Exp(x)), nil
	default:
		return quantity.Quantity{}, fmt.Errorf("unknown function %v", fn)
	}
}
