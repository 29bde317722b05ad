// Package problem loads equation-solving problems from HCL definition
// files: variable and equation blocks plus the two solver scalars.
package problem

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/engsuite/resolve/quantity"
	"github.com/engsuite/resolve/solver"
	"github.com/engsuite/resolve/system"
)

type problemFile struct {
	Tolerance     *float64        `hcl:"tolerance,optional"`
	MaxIterations *int            `hcl:"max_iterations,optional"`
	Variables     []variableBlock `hcl:"variable,block"`
	Equations     []equationBlock `hcl:"equation,block"`
}

type variableBlock struct {
	Symbol    string     `hcl:"symbol,label"`
	Value     *cty.Value `hcl:"value,optional"`
	Name      *string    `hcl:"name,optional"`
	Dimension *string    `hcl:"dimension,optional"`
	Positive  *bool      `hcl:"positive,optional"`
}

type equationBlock struct {
	LHS  string  `hcl:"lhs,label"`
	Expr string  `hcl:"expr"`
	Name *string `hcl:"name,optional"`
}

var dimensionNames = map[string]quantity.Dimension{
	"dimensionless": quantity.Dimensionless,
	"length":        quantity.Length,
	"mass":          quantity.Mass,
	"time":          quantity.Time,
	"temperature":   quantity.Temperature,
	"area":          quantity.Area,
	"volume":        quantity.Volume,
	"velocity":      quantity.Velocity,
	"acceleration":  quantity.Acceleration,
	"force":         quantity.Force,
	"pressure":      quantity.Pressure,
	"energy":        quantity.Energy,
	"power":         quantity.Power,
}

// LoadFile parses and decodes one HCL problem file into a declared system
// plus the solver options the file sets.
func LoadFile(path string) (*system.System, []solver.Option, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	var pf problemFile
	if diags := gohcl.DecodeBody(file.Body, nil, &pf); diags.HasErrors() {
		return nil, nil, fmt.Errorf("decode %s: %s", path, diags.Error())
	}
	return build(&pf)
}

// LoadBytes is LoadFile over in-memory HCL source.
func LoadBytes(src []byte, filename string) (*system.System, []solver.Option, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var pf problemFile
	if diags := gohcl.DecodeBody(file.Body, nil, &pf); diags.HasErrors() {
		return nil, nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}
	return build(&pf)
}

func build(pf *problemFile) (*system.System, []solver.Option, error) {
	sys := system.New()

	for _, vb := range pf.Variables {
		v, err := buildVariable(vb)
		if err != nil {
			return nil, nil, err
		}
		if err := sys.DeclareVariable(v); err != nil {
			return nil, nil, err
		}
	}

	for _, eb := range pf.Equations {
		eq, err := system.ParseEq(eb.LHS, eb.Expr)
		if err != nil {
			return nil, nil, err
		}
		if eb.Name != nil {
			eq = system.NewEquation(*eb.Name, eq.LHS(), eq.RHS())
		}
		if err := sys.DeclareEquation(eq); err != nil {
			return nil, nil, err
		}
	}

	var opts []solver.Option
	if pf.Tolerance != nil {
		opts = append(opts, solver.WithTolerance(*pf.Tolerance))
	}
	if pf.MaxIterations != nil {
		opts = append(opts, solver.WithMaxIterations(*pf.MaxIterations))
	}
	return sys, opts, nil
}

func buildVariable(vb variableBlock) (*system.Variable, error) {
	var v *system.Variable
	switch {
	case vb.Value != nil:
		q, err := valueToQuantity(*vb.Value)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", vb.Symbol, err)
		}
		v = system.Known(vb.Symbol, q)
	case vb.Dimension != nil:
		dim, ok := dimensionNames[*vb.Dimension]
		if !ok {
			return nil, fmt.Errorf("variable %q: unknown dimension %q", vb.Symbol, *vb.Dimension)
		}
		v = system.UnknownDim(vb.Symbol, dim)
	default:
		v = system.Unknown(vb.Symbol)
	}
	if vb.Name != nil {
		v = v.WithName(*vb.Name)
	}
	if vb.Positive != nil && *vb.Positive {
		v = v.MarkPositive()
	}
	return v, nil
}

// valueToQuantity accepts a bare number or a "10 in" style string literal.
func valueToQuantity(val cty.Value) (quantity.Quantity, error) {
	switch val.Type() {
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return quantity.Scalar(f), nil
	case cty.String:
		return quantity.Parse(val.AsString())
	default:
		return quantity.Quantity{}, fmt.Errorf("value must be a number or a quantity string, got %s", val.Type().FriendlyName())
	}
}
