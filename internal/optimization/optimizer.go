package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process
	Optimize(ctx context.Context, config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns the history of evaluations
	GetHistory() []Evaluation

	// Stop gracefully stops the optimization process
	Stop()
}

// OptimizerConfig describes the problem handed to an optimizer.
type OptimizerConfig struct {
	// Objective function to minimize
	Objective ObjectiveFunction

	// Number of dimensions of the search space
	Dimensions int

	// Bounds [min, max] applied to every dimension
	Bounds [2]float64

	// Random seed for reproducibility, 0 seeds from the clock
	RandomSeed int64

	// Verbose logging
	Verbose bool
}

// ObjectiveFunction defines the function to be minimized.
// It must be deterministic for identical input.
type ObjectiveFunction func([]float64) float64

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Evaluation records the best solution of one iteration
type Evaluation struct {
	Iteration int
	Solution  *Solution
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	Evaluations  int
	Warnings     int
	// Converged reports whether a target value was reached.
	Converged bool
}
