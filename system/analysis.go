package system

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/engsuite/resolve/expr"
)

// Determinacy classifies a simultaneous group.
type Determinacy uint8

const (
	// WellPosed means as many equations as unknowns.
	WellPosed Determinacy = iota
	// UnderDetermined means more unknowns than equations.
	UnderDetermined
	// OverDetermined means more equations than unknowns.
	OverDetermined
)

func (d Determinacy) String() string {
	switch d {
	case WellPosed:
		return "well-posed"
	case UnderDetermined:
		return "under-determined"
	default:
		return "over-determined"
	}
}

// Group is a maximal set of equations whose unknowns are mutually dependent
// and cannot be solved one at a time.
type Group struct {
	Equations   []int // indices into the analyzed equation list, declaration order
	Unknowns    []string
	Determinacy Determinacy
}

// Analysis is the result of one dependency pass. It is derived and
// disposable; compute it once per solve call.
//
// Partition invariant: every unknown the equations reference lands in
// exactly one of OrderSymbols, a group's Unknowns, or Unresolved.
type Analysis struct {
	// Order lists equations solvable in sequence by plain evaluation, in the
	// order they unblock.
	Order []int
	// OrderSymbols lists the lhs solved by each Order entry.
	OrderSymbols []string
	// Groups lists the simultaneous groups, ordered by first equation.
	Groups []Group
	// Unresolved lists unknowns no remaining equation can produce.
	Unresolved []string

	initialUnknowns []string
}

// Analyze builds the dependency partition for eqs against the current
// known/unknown state of vars. The variable map is not modified.
//
// The stratification mirrors constraint leveling: repeatedly take an
// equation with exactly one unknown which is its own lhs, mark the lhs
// known, and append to the order. Whatever survives the fixpoint is grouped
// by transitive connection through shared unknowns.
func Analyze(eqs []*Equation, vars *Variables) (*Analysis, error) {
	a := &Analysis{initialUnknowns: vars.Unknowns()}

	known := bitset.New(uint(vars.Len()))
	for i, sym := range vars.Symbols() {
		v, _ := vars.Get(sym)
		if v.IsKnown() {
			known.Set(uint(i))
		}
	}

	// per-equation reference indices, validated up front
	type eqInfo struct {
		lhs     int
		refs    []int
		selfRef bool
	}
	infos := make([]eqInfo, len(eqs))
	for i, e := range eqs {
		li, ok := vars.index(e.LHS())
		if !ok {
			return nil, &expr.UnboundVariableError{Symbol: e.LHS()}
		}
		info := eqInfo{lhs: li, selfRef: e.IsSelfReferential()}
		for _, s := range e.References() {
			vi, ok := vars.index(s)
			if !ok {
				return nil, &expr.UnboundVariableError{Symbol: s}
			}
			info.refs = append(info.refs, vi)
		}
		infos[i] = info
	}

	symbols := vars.Symbols()
	processed := bitset.New(uint(len(eqs)))

	// fixpoint over directly solvable equations
	for {
		progress := false
		for i := range eqs {
			if processed.Test(uint(i)) {
				continue
			}
			nbUnknown := 0
			onlyUnknown := -1
			for _, vi := range infos[i].refs {
				if !known.Test(uint(vi)) {
					nbUnknown++
					onlyUnknown = vi
				}
			}
			if nbUnknown == 0 {
				// plain check; residual verification covers it
				processed.Set(uint(i))
				continue
			}
			if nbUnknown == 1 && onlyUnknown == infos[i].lhs && !infos[i].selfRef {
				a.Order = append(a.Order, i)
				a.OrderSymbols = append(a.OrderSymbols, symbols[infos[i].lhs])
				known.Set(uint(infos[i].lhs))
				processed.Set(uint(i))
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	// union-find over the unknowns of the remaining equations
	parent := make([]int, vars.Len())
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(x, y int) {
		rx, ry := find(x), find(y)
		if rx != ry {
			parent[ry] = rx
		}
	}

	grouped := bitset.New(uint(vars.Len()))
	for i := range eqs {
		if processed.Test(uint(i)) {
			continue
		}
		first := -1
		for _, vi := range infos[i].refs {
			if known.Test(uint(vi)) {
				continue
			}
			grouped.Set(uint(vi))
			if first < 0 {
				first = vi
			} else {
				union(first, vi)
			}
		}
	}

	// collect groups keyed by component root, ordered by first equation
	groupOf := map[int]int{} // component root -> index into a.Groups
	for i := range eqs {
		if processed.Test(uint(i)) {
			continue
		}
		root := -1
		for _, vi := range infos[i].refs {
			if !known.Test(uint(vi)) {
				root = find(vi)
				break
			}
		}
		if root < 0 {
			continue
		}
		gi, ok := groupOf[root]
		if !ok {
			gi = len(a.Groups)
			a.Groups = append(a.Groups, Group{})
			groupOf[root] = gi
		}
		a.Groups[gi].Equations = append(a.Groups[gi].Equations, i)
	}
	for vi, sym := range symbols {
		if !grouped.Test(uint(vi)) {
			continue
		}
		gi := groupOf[find(vi)]
		a.Groups[gi].Unknowns = append(a.Groups[gi].Unknowns, sym)
	}
	for gi := range a.Groups {
		g := &a.Groups[gi]
		switch {
		case len(g.Equations) < len(g.Unknowns):
			g.Determinacy = UnderDetermined
		case len(g.Equations) > len(g.Unknowns):
			g.Determinacy = OverDetermined
		default:
			g.Determinacy = WellPosed
		}
	}

	// unknowns nothing can produce anymore
	for vi, sym := range symbols {
		if !known.Test(uint(vi)) && !grouped.Test(uint(vi)) {
			a.Unresolved = append(a.Unresolved, sym)
		}
	}

	return a, nil
}

// InitialUnknowns returns the unknown symbols at analysis time, declaration
// order.
func (a *Analysis) InitialUnknowns() []string {
	return append([]string(nil), a.initialUnknowns...)
}

// Unsolved returns the unknowns the direct order alone cannot produce:
// group members plus unresolved symbols.
func (a *Analysis) Unsolved() []string {
	var out []string
	for _, g := range a.Groups {
		out = append(out, g.Unknowns...)
	}
	out = append(out, a.Unresolved...)
	return out
}

// WellPosed reports whether the whole partition is solvable in principle:
// no unresolved unknowns and every group well-posed.
func (a *Analysis) WellPosed() bool {
	if len(a.Unresolved) > 0 {
		return false
	}
	for _, g := range a.Groups {
		if g.Determinacy != WellPosed {
			return false
		}
	}
	return true
}
