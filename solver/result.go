package solver

import (
	"github.com/engsuite/resolve/quantity"
	"github.com/engsuite/resolve/system"
)

// Method names reported in Result.Method.
const (
	MethodNone         = "NoSolver"
	MethodIterative    = "IterativeSolver"
	MethodSimultaneous = "SimultaneousEquationSolver"
)

// Step method names reported per assignment.
const (
	stepDirect       = "direct"
	stepFixedPoint   = "fixed-point"
	stepSimultaneous = "simultaneous"
)

// Step records one assignment: which equation produced which symbol, how.
type Step struct {
	Equation string
	Symbol   string
	Value    quantity.Quantity
	Method   string
}

// Result is the sole output of a solve call. On failure the variable map is
// bit-for-bit the caller's pre-call state; on success it holds every
// assignment the steps describe.
type Result struct {
	Variables *system.Variables
	Steps     []Step
	Success   bool
	Message   string
	Method    string
}
