package de

import (
	"math"

	"github.com/copyleftdev/dever/internal/optimization"
)

// MinPopulationSize is the smallest population for which two distinct
// partners other than the individual itself can be drawn.
const MinPopulationSize = 3

// Objective is the function being minimized. It must be deterministic for
// identical input and must not retain or modify its argument.
type Objective func(Vector) float64

// FromFunc adapts a plain slice function to an Objective.
func FromFunc(f func([]float64) float64) Objective {
	return func(v Vector) float64 { return f(v) }
}

// Target is the problem being solved: an objective over the box
// [LeftBound, RightBound]^Dimensions.
type Target struct {
	Objective  Objective
	Dimensions int
	LeftBound  float64
	RightBound float64
}

// Source is the uniform random generator consumed by the engine.
// *math/rand.Rand satisfies it.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// StopKind tags the variant held by a StopCondition.
type StopKind int

const (
	// StopAfterIterations stops once the generation count exceeds a limit.
	StopAfterIterations StopKind = iota + 1
	// StopWhenSatisfied stops once the best value drops below a threshold.
	StopWhenSatisfied
)

// String returns the name of the stop kind.
func (k StopKind) String() string {
	switch k {
	case StopAfterIterations:
		return "after_iterations"
	case StopWhenSatisfied:
		return "when_satisfied"
	default:
		return "unknown"
	}
}

// StopCondition decides when the generation loop ends. Build one with
// AfterIterations or WhenSatisfied.
type StopCondition struct {
	Kind       StopKind
	Iterations uint64
	Threshold  float64
}

// AfterIterations stops once more than limit generations have run. The
// loop always runs at least one generation, even for a limit of 0.
func AfterIterations(limit uint64) StopCondition {
	return StopCondition{Kind: StopAfterIterations, Iterations: limit}
}

// WhenSatisfied stops once the best value seen at the start of a
// generation is strictly below threshold.
func WhenSatisfied(threshold float64) StopCondition {
	return StopCondition{Kind: StopWhenSatisfied, Threshold: threshold}
}

// CrossoverMode selects how the keep-probe draw is made during crossover.
type CrossoverMode int

const (
	// CrossoverReference draws an integer in [0, dimensions) and keeps the
	// mutated coordinate when the draw is below CR. For more than one
	// dimension this only keeps the coordinate when the draw is 0, so CR
	// does not act as a probability. It is the default.
	CrossoverReference CrossoverMode = iota
	// CrossoverBinomial draws from [0, 1), making CR the probability of
	// keeping each mutated coordinate.
	CrossoverBinomial
)

// Config holds the algorithm parameters.
type Config struct {
	// PopulationSize is the number of individuals, at least 3.
	PopulationSize int
	// CrossoverProbability is CR, in [0, 1].
	CrossoverProbability float64
	// AmplificationFactor is F, conventionally in [0, 2]. Not enforced.
	AmplificationFactor float64
	// Lambda weights the pull of every trial vector toward the current
	// best individual, in [0, 1].
	Lambda float64
	// Stop ends the generation loop.
	Stop StopCondition
	// Crossover selects the keep-probe draw.
	Crossover CrossoverMode
}

// DefaultConfig returns the parameters used when none are given.
func DefaultConfig() Config {
	return Config{
		PopulationSize:       50,
		CrossoverProbability: 0.9,
		AmplificationFactor:  0.5,
		Lambda:               0.5,
		Stop:                 AfterIterations(1000),
		Crossover:            CrossoverReference,
	}
}

// Validate checks the configuration against target. Every failure is an
// ErrInvalidConfig.
func (c Config) Validate(target Target) error {
	invalid := func(format string, args ...interface{}) error {
		return optimization.InvalidConfigf(format, args...).WithComponent("de").WithOperation("validate")
	}

	switch {
	case target.Objective == nil:
		return invalid("objective function is required")
	case target.Dimensions < 1:
		return invalid("dimensions must be at least 1, got %d", target.Dimensions)
	case !finite(target.LeftBound) || !finite(target.RightBound):
		return invalid("bounds must be finite, got [%v, %v]", target.LeftBound, target.RightBound)
	case target.LeftBound > target.RightBound:
		return invalid("left bound %v exceeds right bound %v", target.LeftBound, target.RightBound)
	case c.PopulationSize < MinPopulationSize:
		return invalid("population size must be at least %d, got %d", MinPopulationSize, c.PopulationSize)
	case !inUnit(c.CrossoverProbability):
		return invalid("crossover probability must be in [0, 1], got %v", c.CrossoverProbability)
	case !inUnit(c.Lambda):
		return invalid("lambda must be in [0, 1], got %v", c.Lambda)
	}

	switch c.Crossover {
	case CrossoverReference, CrossoverBinomial:
	default:
		return invalid("unknown crossover mode %d", c.Crossover)
	}

	switch c.Stop.Kind {
	case StopAfterIterations:
	case StopWhenSatisfied:
		if math.IsNaN(c.Stop.Threshold) {
			return invalid("stop threshold must not be NaN")
		}
	default:
		return invalid("unknown stop condition %d", c.Stop.Kind)
	}

	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func inUnit(x float64) bool {
	return x >= 0 && x <= 1
}
