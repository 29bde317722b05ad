package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/engsuite/resolve/internal/problem"
	"github.com/engsuite/resolve/logger"
	"github.com/engsuite/resolve/solver"
)

var (
	fTolerance     float64
	fMaxIterations int
	fVerbose       bool
)

var solveCmd = &cobra.Command{
	Use:   "solve [problem.hcl]",
	Short: "solve the unknowns of a problem file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().Float64Var(&fTolerance, "tolerance", 0, "relative convergence tolerance (overrides the file)")
	solveCmd.Flags().IntVar(&fMaxIterations, "max-iterations", 0, "iteration budget (overrides the file)")
	solveCmd.Flags().BoolVarP(&fVerbose, "verbose", "v", false, "log solver progress")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	if !fVerbose {
		logger.Disable()
	} else {
		logger.Set(logger.Logger().Level(zerolog.DebugLevel))
	}

	sys, opts, err := problem.LoadFile(args[0])
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("tolerance") {
		opts = append(opts, solver.WithTolerance(fTolerance))
	}
	if cmd.Flags().Changed("max-iterations") {
		opts = append(opts, solver.WithMaxIterations(fMaxIterations))
	}

	res, err := solver.SolveSystem(sys, opts...)
	if err != nil {
		return err
	}
	if !res.Success {
		fmt.Fprintf(os.Stderr, "unsolved: %s\n", res.Message)
		os.Exit(1)
	}

	fmt.Printf("solved with %s\n", res.Method)
	for i, step := range res.Steps {
		fmt.Printf("%3d. %-12s %s = %s  (%s)\n", i+1, step.Equation, step.Symbol, step.Value, step.Method)
	}
	for _, sym := range res.Variables.Symbols() {
		v, _ := res.Variables.Get(sym)
		q, err := v.Value()
		if err != nil {
			continue
		}
		fmt.Printf("%s = %s\n", v.Name(), q)
	}
	return nil
}
