package de

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/dever/internal/optimization"
)

// Optimizer adapts Run to the optimization.Optimizer interface. It keeps
// a history of per-generation bests that can be read while a run is in
// progress.
type Optimizer struct {
	// Configuration
	config Config
	opts   []Option
	polish bool
	log    *zap.Logger

	mu sync.RWMutex

	// Best solution found
	bestSolution *optimization.Solution

	// Per-generation bests
	history []optimization.Evaluation

	// For cancellation
	cancel context.CancelFunc
}

var _ optimization.Optimizer = (*Optimizer)(nil)

// NewOptimizer creates a new differential evolution optimizer. An unset
// Stop takes its value from DefaultConfig; the population size is always
// the caller's.
func NewOptimizer(config Config, opts ...Option) (*Optimizer, error) {
	if config.Stop.Kind == 0 {
		config.Stop = DefaultConfig().Stop
	}
	if config.PopulationSize < MinPopulationSize {
		return nil, optimization.InvalidConfigf("population size must be at least %d, got %d", MinPopulationSize, config.PopulationSize).
			WithComponent("de").WithOperation("NewOptimizer")
	}

	o := newOptions(opts)
	capacity := 0
	if config.Stop.Kind == StopAfterIterations && config.Stop.Iterations < 1<<16 {
		capacity = int(config.Stop.Iterations) + 1
	}

	return &Optimizer{
		config:  config,
		opts:    opts,
		polish:  o.polish,
		log:     o.log,
		history: make([]optimization.Evaluation, 0, capacity),
	}, nil
}

// Optimize runs differential evolution on the problem described by config.
func (op *Optimizer) Optimize(ctx context.Context, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	if config.Objective == nil {
		return nil, optimization.InvalidConfigf("objective function is required").
			WithComponent("de").WithOperation("Optimize")
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	target := Target{
		Objective:  FromFunc(config.Objective),
		Dimensions: config.Dimensions,
		LeftBound:  config.Bounds[0],
		RightBound: config.Bounds[1],
	}

	ctx, cancel := context.WithCancel(ctx)
	op.mu.Lock()
	op.cancel = cancel
	op.history = op.history[:0]
	op.bestSolution = nil
	op.mu.Unlock()
	defer cancel()

	opts := append(append([]Option(nil), op.opts...), WithObserver(op.record))
	res, err := Run(ctx, target, op.config, rng, opts...)
	if err != nil {
		return nil, err
	}

	best, value := res.Best, res.Value
	evaluations := res.Evaluations
	if op.polish {
		var n int
		best, value, n = op.polishResult(target, best, value)
		evaluations += n
	}
	op.updateBestSolution(best, value)

	if config.Verbose {
		op.log.Info("optimization finished",
			zap.Int64("seed", seed),
			zap.Uint64("iterations", res.Iterations),
			zap.Int("evaluations", evaluations),
			zap.Float64("best_value", value),
		)
	}

	op.mu.RLock()
	history := append([]optimization.Evaluation(nil), op.history...)
	op.mu.RUnlock()

	converged := op.config.Stop.Kind == StopWhenSatisfied && value < op.config.Stop.Threshold
	return &optimization.OptimizationResult{
		BestSolution: op.GetBestSolution(),
		History:      history,
		Iterations:   int(res.Iterations),
		Evaluations:  evaluations,
		Warnings:     res.Warnings,
		Converged:    converged,
	}, nil
}

// GetBestSolution returns the best solution found so far
func (op *Optimizer) GetBestSolution() *optimization.Solution {
	op.mu.RLock()
	defer op.mu.RUnlock()
	return op.bestSolution
}

// GetHistory returns a copy of the per-generation history
func (op *Optimizer) GetHistory() []optimization.Evaluation {
	op.mu.RLock()
	defer op.mu.RUnlock()
	return append([]optimization.Evaluation(nil), op.history...)
}

// Stop cancels a run in progress. It takes effect between generations.
func (op *Optimizer) Stop() {
	op.mu.RLock()
	cancel := op.cancel
	op.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// record appends one generation to the history and tracks the best.
func (op *Optimizer) record(g Generation) {
	op.mu.Lock()
	op.history = append(op.history, optimization.Evaluation{
		Iteration: int(g.Iteration),
		Solution: &optimization.Solution{
			Parameters: g.Best,
			Value:      g.BestValue,
		},
	})
	op.mu.Unlock()
	op.updateBestSolution(g.Best, g.BestValue)
}

// updateBestSolution updates the best solution if the new solution is better
func (op *Optimizer) updateBestSolution(params []float64, value float64) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.bestSolution == nil || value < op.bestSolution.Value {
		op.bestSolution = &optimization.Solution{
			Parameters: append([]float64(nil), params...),
			Value:      value,
		}
	}
}

// polishResult refines start with Nelder-Mead, keeping every probe inside
// the target's box. The refined point is returned only if it is strictly
// better. The third return value counts objective calls.
func (op *Optimizer) polishResult(target Target, start Vector, value float64) (Vector, float64, int) {
	left, right := target.LeftBound, target.RightBound
	evaluations := 0
	buf := make(Vector, len(start))
	project := func(x []float64) Vector {
		for i, v := range x {
			buf[i] = math.Max(left, math.Min(v, right))
		}
		return buf
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			evaluations++
			return target.Objective(project(x))
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: 200 * len(start),
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 100,
		},
	}
	method := &optimize.NelderMead{
		SimplexSize: 0.05 * (right - left),
	}

	result, err := optimize.Minimize(problem, start.Clone(), settings, method)
	if err != nil || result == nil {
		op.log.Debug("polish failed, keeping evolved point", zap.Error(err))
		return start, value, evaluations
	}

	candidate := project(result.X).Clone()
	candidateValue := target.Objective(candidate)
	evaluations++
	if candidateValue < value {
		op.log.Debug("polish improved solution",
			zap.Float64("before", value),
			zap.Float64("after", candidateValue),
		)
		return candidate, candidateValue, evaluations
	}
	return start, value, evaluations
}
