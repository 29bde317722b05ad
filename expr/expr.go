// Package expr implements the expression trees that equations are made of.
//
// Trees are immutable and side-effect free: Evaluate walks the tree against a
// Context and delegates all arithmetic to the quantity package, which owns
// dimensional compatibility. The node set is closed; there is no way to
// extend it from outside the package, so consumers can switch exhaustively.
package expr

import (
	"fmt"
	"sort"

	"github.com/engsuite/resolve/quantity"
)

// Context resolves variable symbols during evaluation. Value returns
// UnboundVariableError for a symbol the context has never seen and
// UnknownValueError for a declared but still unsolved variable.
type Context interface {
	Value(symbol string) (quantity.Quantity, error)
}

// Revisioned is implemented by contexts that version their state; the eval
// cache uses it to discard memoized results after an assignment.
type Revisioned interface {
	Revision() uint64
}

// UnboundVariableError reports a reference to a symbol absent from the
// context. It indicates a construction bug, not a solvable condition.
type UnboundVariableError struct {
	Symbol string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable %q", e.Symbol)
}

// UnknownValueError reports evaluation of a declared variable that has no
// value yet. Callers are expected to consult References first; this error is
// a backstop, not control flow.
type UnknownValueError struct {
	Symbol string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("variable %q has no value yet", e.Symbol)
}

// Expr is an immutable expression tree node.
type Expr interface {
	// Evaluate computes the node's value against ctx.
	Evaluate(ctx Context) (quantity.Quantity, error)
	// IsConstant reports whether the subtree references no variables.
	IsConstant() bool
	fmt.Stringer

	appendRefs(set map[string]struct{})
}

// References returns the sorted set of variable symbols e mentions.
func References(e Expr) []string {
	set := map[string]struct{}{}
	e.appendRefs(set)
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Constant wraps a fixed quantity.
type Constant struct {
	q quantity.Quantity
}

// Const returns a constant node.
func Const(q quantity.Quantity) *Constant { return &Constant{q: q} }

// Num returns a dimensionless constant node.
func Num(v float64) *Constant { return &Constant{q: quantity.Scalar(v)} }

func (c *Constant) Evaluate(Context) (quantity.Quantity, error) { return c.q, nil }
func (c *Constant) IsConstant() bool                            { return true }
func (c *Constant) Quantity() quantity.Quantity                 { return c.q }
func (c *Constant) String() string                              { return c.q.String() }
func (c *Constant) appendRefs(map[string]struct{})              {}

// Var references a variable by symbol.
type Var struct {
	symbol string
}

// V returns a variable reference node.
func V(symbol string) *Var { return &Var{symbol: symbol} }

func (v *Var) Evaluate(ctx Context) (quantity.Quantity, error) { return ctx.Value(v.symbol) }
func (v *Var) IsConstant() bool                                { return false }
func (v *Var) Symbol() string                                  { return v.symbol }
func (v *Var) String() string                                  { return v.symbol }
func (v *Var) appendRefs(set map[string]struct{})              { set[v.symbol] = struct{}{} }

// Op is a binary arithmetic operator.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpPow
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Binary applies an arithmetic operator to two subtrees.
type Binary struct {
	op   Op
	l, r Expr
}

// Bin returns a binary operation node.
func Bin(op Op, l, r Expr) *Binary { return &Binary{op: op, l: l, r: r} }

// Convenience constructors mirroring the operator set.
func Add(l, r Expr) *Binary { return Bin(OpAdd, l, r) }
func Sub(l, r Expr) *Binary { return Bin(OpSub, l, r) }
func Mul(l, r Expr) *Binary { return Bin(OpMul, l, r) }
func Div(l, r Expr) *Binary { return Bin(OpDiv, l, r) }
func Pow(l, r Expr) *Binary { return Bin(OpPow, l, r) }

func (b *Binary) Op() Op      { return b.op }
func (b *Binary) Left() Expr  { return b.l }
func (b *Binary) Right() Expr { return b.r }

func (b *Binary) IsConstant() bool {
	return b.l.IsConstant() && b.r.IsConstant()
}

func (b *Binary) Evaluate(ctx Context) (quantity.Quantity, error) {
	l, err := b.l.Evaluate(ctx)
	if err != nil {
		return quantity.Quantity{}, err
	}
	r, err := b.r.Evaluate(ctx)
	if err != nil {
		return quantity.Quantity{}, err
	}
	switch b.op {
	case OpAdd:
		return l.Add(r)
	case OpSub:
		return l.Sub(r)
	case OpMul:
		return l.Mul(r), nil
	case OpDiv:
		return l.Div(r), nil
	case OpPow:
		return l.Pow(r)
	default:
		return quantity.Quantity{}, fmt.Errorf("unknown operator %v", b.op)
	}
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.l, b.op, b.r)
}

func (b *Binary) appendRefs(set map[string]struct{}) {
	b.l.appendRefs(set)
	b.r.appendRefs(set)
}

// CmpOp is a comparison operator used in conditionals.
type CmpOp uint8

const (
	CmpLT CmpOp = iota
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
	CmpNE
)

func (op CmpOp) String() string {
	switch op {
	case CmpLT:
		return "<"
	case CmpLE:
		return "<="
	case CmpGT:
		return ">"
	case CmpGE:
		return ">="
	case CmpEQ:
		return "=="
	case CmpNE:
		return "!="
	default:
		return fmt.Sprintf("cmp(%d)", uint8(op))
	}
}

// Comparison is the predicate of a conditional. Operand dimensions must
// agree; the comparison itself is delegated to the quantity package.
type Comparison struct {
	op   CmpOp
	l, r Expr
}

// Cmp returns a comparison predicate.
func Cmp(op CmpOp, l, r Expr) *Comparison { return &Comparison{op: op, l: l, r: r} }

// Holds evaluates the predicate.
func (c *Comparison) Holds(ctx Context) (bool, error) {
	l, err := c.l.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	r, err := c.r.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	sign, err := l.Cmp(r)
	if err != nil {
		return false, err
	}
	switch c.op {
	case CmpLT:
		return sign < 0, nil
	case CmpLE:
		return sign <= 0, nil
	case CmpGT:
		return sign > 0, nil
	case CmpGE:
		return sign >= 0, nil
	case CmpEQ:
		return sign == 0, nil
	case CmpNE:
		return sign != 0, nil
	default:
		return false, fmt.Errorf("unknown comparison %v", c.op)
	}
}

func (c *Comparison) Op() CmpOp   { return c.op }
func (c *Comparison) Left() Expr  { return c.l }
func (c *Comparison) Right() Expr { return c.r }

// References returns the sorted symbols the predicate mentions.
func (c *Comparison) References() []string {
	set := map[string]struct{}{}
	c.appendRefs(set)
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (c *Comparison) IsConstant() bool {
	return c.l.IsConstant() && c.r.IsConstant()
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.l, c.op, c.r)
}

func (c *Comparison) appendRefs(set map[string]struct{}) {
	c.l.appendRefs(set)
	c.r.appendRefs(set)
}

// Cond selects between two subtrees. Only the taken branch is evaluated, so
// an unknown variable on the untaken branch does not poison evaluation.
type Cond struct {
	pred      *Comparison
	then, els Expr
}

// If returns a conditional node.
func If(pred *Comparison, then, els Expr) *Cond {
	return &Cond{pred: pred, then: then, els: els}
}

func (c *Cond) Pred() *Comparison { return c.pred }
func (c *Cond) Then() Expr        { return c.then }
func (c *Cond) Else() Expr        { return c.els }

func (c *Cond) Evaluate(ctx Context) (quantity.Quantity, error) {
	ok, err := c.pred.Holds(ctx)
	if err != nil {
		return quantity.Quantity{}, err
	}
	if ok {
		return c.then.Evaluate(ctx)
	}
	return c.els.Evaluate(ctx)
}

func (c *Cond) IsConstant() bool {
	return c.pred.IsConstant() && c.then.IsConstant() && c.els.IsConstant()
}

func (c *Cond) String() string {
	return fmt.Sprintf("if(%s, %s, %s)", c.pred, c.then, c.els)
}

func (c *Cond) appendRefs(set map[string]struct{}) {
	c.pred.appendRefs(set)
	c.then.appendRefs(set)
	c.els.appendRefs(set)
}

// Fn is a unary function.
type Fn uint8

const (
	FnSin Fn = iota
	FnCos
	FnTan
	FnAsin
	FnAcos
	FnAtan
	FnSqrt
	FnAbs
	FnLn
	FnLog10
	FnExp
	FnNeg
)

var fnNames = map[Fn]string{
	FnSin: "sin", FnCos: "cos", FnTan: "tan",
	FnAsin: "asin", FnAcos: "acos", FnAtan: "atan",
	FnSqrt: "sqrt", FnAbs: "abs",
	FnLn: "ln", FnLog10: "log10", FnExp: "exp",
	FnNeg: "neg",
}

func (f Fn) String() string {
	if s, ok := fnNames[f]; ok {
		return s
	}
	return fmt.Sprintf("fn(%d)", uint8(f))
}

// FnByName resolves a function name as used by the parser.
func FnByName(name string) (Fn, bool) {
	for f, s := range fnNames {
		if s == name {
			return f, true
		}
	}
	return 0, false
}

// Call applies a unary function to a subtree. Transcendental functions
// require a dimensionless argument; sqrt halves even dimension exponents;
// abs and neg accept anything.
type Call struct {
	fn  Fn
	arg Expr
}

// Apply returns a function application node.
func Apply(fn Fn, arg Expr) *Call { return &Call{fn: fn, arg: arg} }

func (c *Call) Fn() Fn           { return c.fn }
func (c *Call) Arg() Expr        { return c.arg }
func (c *Call) IsConstant() bool { return c.arg.IsConstant() }

func (c *Call) Evaluate(ctx Context) (quantity.Quantity, error) {
	v, err := c.arg.Evaluate(ctx)
	if err != nil {
		return quantity.Quantity{}, err
	}
	return applyFn(c.fn, v)
}

func (c *Call) String() string {
	if c.fn == FnNeg {
		return fmt.Sprintf("-(%s)", c.arg)
	}
	return fmt.Sprintf("%s(%s)", c.fn, c.arg)
}

func (c *Call) appendRefs(set map[string]struct{}) {
	c.arg.appendRefs(set)
}

// Neg returns the arithmetic negation of e.
func Neg(e Expr) *Call { return Apply(FnNeg, e) }
