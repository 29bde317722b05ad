package solver

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/engsuite/resolve/logger"
)

// Default solving parameters.
const (
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 100
)

// Option defines option for altering the behavior of the solver manager
// (Solve() function). See the descriptions of functions returning instances
// of this type for implemented options.
type Option func(*Config) error

// Config is the configuration for the solver with the options applied.
type Config struct {
	Tolerance     float64        // relative convergence/verification tolerance, defaults to 1e-10
	MaxIterations int            // pass + refinement budget, defaults to 100
	Logger        zerolog.Logger // defaults to resolve logger

	strategies []Strategy
}

// WithTolerance sets the relative tolerance used for fixed-point convergence
// and residual verification.
func WithTolerance(tol float64) Option {
	return func(opt *Config) error {
		if tol <= 0 {
			return fmt.Errorf("invalid tolerance: %g", tol)
		}
		opt.Tolerance = tol
		return nil
	}
}

// WithMaxIterations sets the shared iteration budget: sweep passes and
// fixed-point refinement steps both count against it.
func WithMaxIterations(n int) Option {
	return func(opt *Config) error {
		if n <= 0 {
			return fmt.Errorf("invalid iteration limit: %d", n)
		}
		opt.MaxIterations = n
		return nil
	}
}

// WithLogger specifies a zerolog.Logger as the destination for solver
// progress logs. zerolog.Nop() will disable logging.
func WithLogger(l zerolog.Logger) Option {
	return func(opt *Config) error {
		opt.Logger = l
		return nil
	}
}

// WithStrategies registers custom strategies ahead of the default list, so
// they are tried first. The default strategies stay as fallback.
func WithStrategies(ss ...Strategy) Option {
	return func(opt *Config) error {
		opt.strategies = append(append([]Strategy(nil), ss...), opt.strategies...)
		return nil
	}
}

// Strategies returns the configured strategy list in priority order.
func (opt *Config) Strategies() []Strategy {
	return opt.strategies
}

// NewConfig returns the default Config with the given options applied.
// The default strategy order tries the simultaneous solver before the
// iterative one: only the simultaneous strategy resolves cycles, and the
// iterative pass stays available as fallback for everything else.
func NewConfig(opts ...Option) (Config, error) {
	opt := Config{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Logger:        logger.Logger(),
		strategies:    []Strategy{SimultaneousSolver{}, IterativeSolver{}},
	}
	for _, option := range opts {
		if err := option(&opt); err != nil {
			return Config{}, err
		}
	}
	return opt, nil
}
