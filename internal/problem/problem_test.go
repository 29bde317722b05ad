package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engsuite/resolve/quantity"
	"github.com/engsuite/resolve/solver"
)

const wallThicknessHCL = `
tolerance      = 1e-9
max_iterations = 50

variable "D" {
  value = "10 in"
  name  = "Bore diameter"
}

variable "T_bar" {
  value = "0.147 in"
}

variable "U_m" {
  value = 0.125
}

variable "T" {
  dimension = "length"
  positive  = true
}

variable "d" {
  dimension = "length"
}

equation "T" {
  expr = "T_bar * (1 - U_m)"
}

equation "d" {
  expr = "D - 2*T"
  name = "inner diameter"
}
`

func TestLoadBytesAndSolve(t *testing.T) {
	sys, opts, err := LoadBytes([]byte(wallThicknessHCL), "wall.hcl")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	vars := sys.Variables()
	d, ok := vars.Get("D")
	require.True(t, ok)
	assert.Equal(t, "Bore diameter", d.Name())
	tv, ok := vars.Get("T")
	require.True(t, ok)
	assert.True(t, tv.Positive())
	assert.Equal(t, quantity.Length, tv.Dimension())

	eqs := sys.Equations()
	require.Len(t, eqs, 2)
	assert.Equal(t, "inner diameter", eqs[1].Name())

	res, err := solver.SolveSystem(sys, opts...)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	q, err := vars.Value("d")
	require.NoError(t, err)
	in, err := q.In(quantity.Inch)
	require.NoError(t, err)
	assert.InDelta(t, 9.74275, in, 1e-9)
}

func TestLoadBytesErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{name: "syntax", src: `variable "x" {`},
		{name: "unknown dimension", src: `
variable "x" {
  dimension = "frobnitz"
}`},
		{name: "bad quantity string", src: `
variable "x" {
  value = "10 parsecs"
}`},
		{name: "bad expression", src: `
variable "x" {}
equation "x" {
  expr = "1 +"
}`},
		{name: "duplicate variable", src: `
variable "x" {}
variable "x" {}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := LoadBytes([]byte(tc.src), tc.name+".hcl")
			require.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, _, err := LoadFile("does-not-exist.hcl")
	require.Error(t, err)
}
