// Package de implements a box-bounded minimizer using Differential
// Evolution, variant DE/rand-to-best/1/bin.
//
// Each generation blends every trial vector toward the current best
// individual (reproduce), perturbs it with the scaled difference of two
// random partners (mutate), resets some coordinates to the parent's
// (crossover) and keeps the trial only if it is strictly better (select).
package de

import (
	"context"

	"go.uber.org/zap"

	"github.com/copyleftdev/dever/internal/optimization"
)

// Generation describes the state observed after one generation.
type Generation struct {
	// Iteration counts generations from 1.
	Iteration uint64
	// Best is a copy of the best individual at the start of the
	// generation, the one every trial vector was pulled toward.
	Best Vector
	// BestValue is the objective value at Best.
	BestValue float64
	// Evaluations is the running count of objective calls.
	Evaluations int
}

// Result is the outcome of Run.
type Result struct {
	// Best is a caller-owned copy of the best point of the final population.
	Best Vector
	// Value is the objective value at Best.
	Value float64
	// Iterations is the number of generations run.
	Iterations uint64
	// Evaluations is the number of objective calls, including the final
	// lookup of the best individual.
	Evaluations int
	// Warnings counts integrity warnings raised during mutation.
	Warnings int
}

type options struct {
	log       *zap.Logger
	observers []func(Generation)
	budget    MemoryBudget
	pool      *MatrixPool
	polish    bool
}

// Option configures Run, Minimize and Optimizer.
type Option func(*options)

// WithLogger sets the logger used for run summaries and integrity warnings.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver registers fn to be called after every generation.
func WithObserver(fn func(Generation)) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithMemoryBudget accounts population storage against budget. A run
// whose populations do not fit fails with ErrOutOfMemory.
func WithMemoryBudget(budget MemoryBudget) Option {
	return func(o *options) { o.budget = budget }
}

// WithMatrixPool recycles population storage through pool.
func WithMatrixPool(pool *MatrixPool) Option {
	return func(o *options) { o.pool = pool }
}

// WithPolish refines the final point with a Nelder-Mead search. Only
// Optimizer honours it.
func WithPolish() Option {
	return func(o *options) { o.polish = true }
}

func newOptions(opts []Option) *options {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Minimize returns the best point found for target. The slice is owned by
// the caller.
func Minimize(target Target, cfg Config, rng Source, opts ...Option) (Vector, error) {
	res, err := Run(context.Background(), target, cfg, rng, opts...)
	if err != nil {
		return nil, err
	}
	return res.Best, nil
}

// Run seeds a population uniformly inside the target's bounds and evolves
// it until cfg.Stop holds. At least one generation always runs.
//
// ctx is checked between generations only; a cancelled run returns
// ctx.Err() and no result.
func Run(ctx context.Context, target Target, cfg Config, rng Source, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	if rng == nil {
		return nil, optimization.InvalidConfigf("random source is required").
			WithComponent("de").WithOperation("run")
	}
	if err := cfg.Validate(target); err != nil {
		return nil, err
	}

	ws, err := newWorkspace(cfg.PopulationSize, target.Dimensions, o.budget, o.pool)
	if err != nil {
		o.log.Error("workspace allocation failed", zap.Error(err))
		return nil, err
	}
	defer ws.release()

	e := &engine{target: target, cfg: cfg, rng: rng, log: o.log, ws: ws}
	ws.generate(rng, target.LeftBound, target.RightBound)

	o.log.Debug("differential evolution started",
		zap.Int("population_size", cfg.PopulationSize),
		zap.Int("dimensions", target.Dimensions),
		zap.Float64("crossover_probability", cfg.CrossoverProbability),
		zap.Float64("amplification_factor", cfg.AmplificationFactor),
		zap.Float64("lambda", cfg.Lambda),
		zap.Stringer("stop", cfg.Stop.Kind),
	)

	var count uint64
	for {
		e.reproduce()
		var best Vector
		if len(o.observers) > 0 {
			best = ws.main.At(ws.best).Clone()
		}
		if err := e.mutate(); err != nil {
			return nil, err
		}
		e.crossover()
		e.selection()
		count++

		if len(o.observers) > 0 {
			g := Generation{
				Iteration:   count,
				Best:        best,
				BestValue:   ws.bestValue,
				Evaluations: e.evaluations,
			}
			for _, fn := range o.observers {
				fn(g)
			}
		}

		stop, err := e.checkStop(count)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
		if err := ctx.Err(); err != nil {
			o.log.Debug("differential evolution cancelled", zap.Uint64("iterations", count))
			return nil, err
		}
	}

	best, value := getBest(ws.main, e.evaluate)
	res := &Result{
		Best:        ws.main.At(best).Clone(),
		Value:       value,
		Iterations:  count,
		Evaluations: e.evaluations,
		Warnings:    e.warnings,
	}

	o.log.Debug("differential evolution finished",
		zap.Uint64("iterations", res.Iterations),
		zap.Int("evaluations", res.Evaluations),
		zap.Float64("best_value", res.Value),
		zap.Int("warnings", res.Warnings),
	)
	return res, nil
}
