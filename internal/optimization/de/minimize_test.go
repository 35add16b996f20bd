package de

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/copyleftdev/dever/internal/optimization"
)

func TestMinimizeSphere(t *testing.T) {
	target := sphereTarget(2, -5, 5)
	cfg := testConfig()

	best, err := Minimize(target, cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Len(t, best, 2)

	assert.Less(t, sphere(best), 1e-3)
	for _, x := range best {
		assert.True(t, x >= -5 && x <= 5)
	}
}

func TestMinimizeShiftedTarget(t *testing.T) {
	shifted := func(v Vector) float64 {
		sum := 0.0
		for i, x := range v {
			d := x - float64(i+1)
			sum += d * d
		}
		return sum
	}
	target := Target{Objective: shifted, Dimensions: 3, LeftBound: -10, RightBound: 10}
	cfg := testConfig()
	cfg.PopulationSize = 30
	cfg.Stop = AfterIterations(300)

	best, err := Minimize(target, cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, []float64(best), 1e-2)
}

func TestMinimizeDeterministic(t *testing.T) {
	target := sphereTarget(4, -3, 3)
	cfg := testConfig()
	cfg.Stop = AfterIterations(50)

	a, err := Minimize(target, cfg, rand.New(rand.NewSource(123)))
	require.NoError(t, err)
	b, err := Minimize(target, cfg, rand.New(rand.NewSource(123)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRunIterationCount(t *testing.T) {
	tests := []struct {
		name  string
		limit uint64
		want  uint64
	}{
		{"zero limit still runs one generation", 0, 1},
		{"one", 1, 2},
		{"limit plus one", 10, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Stop = AfterIterations(tt.limit)

			var observed []uint64
			res, err := Run(context.Background(), sphereTarget(2, -5, 5), cfg, rand.New(rand.NewSource(1)),
				WithObserver(func(g Generation) { observed = append(observed, g.Iteration) }))
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Iterations)
			require.Len(t, observed, int(tt.want))
			assert.Equal(t, uint64(1), observed[0])
			// reproduce evaluates every member, select evaluates both
			// populations, and the final lookup evaluates main once more.
			assert.Equal(t, int(tt.want)*3*cfg.PopulationSize+cfg.PopulationSize, res.Evaluations)
		})
	}
}

func TestRunSingleGenerationChangesPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.Stop = AfterIterations(0)
	size := cfg.PopulationSize

	// Replaying the seeding draws recovers the initial population.
	seedRng := rand.New(rand.NewSource(99))
	seeded := make([]Vector, size)
	for i := range seeded {
		seeded[i] = Vector{-5 + 10*seedRng.Float64(), -5 + 10*seedRng.Float64()}
	}

	var evaluated []Vector
	target := sphereTarget(2, -5, 5)
	target.Objective = func(v Vector) float64 {
		evaluated = append(evaluated, v.Clone())
		return sphere(v)
	}

	res, err := Run(context.Background(), target, cfg, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Iterations)
	require.Len(t, evaluated, 3*size+size)

	// The final best lookup evaluates the main population in order.
	final := evaluated[3*size:]
	replaced := 0
	for i := range final {
		if !assert.ObjectsAreEqual(seeded[i], final[i]) {
			replaced++
			assert.Less(t, sphere(final[i]), sphere(seeded[i]), "individual %d replaced by a worse trial", i)
		}
	}
	assert.Positive(t, replaced, "one generation left the seeded population unchanged")
}

func TestRunWhenSatisfied(t *testing.T) {
	cfg := testConfig()
	cfg.Stop = WhenSatisfied(1e-4)

	var last Generation
	res, err := Run(context.Background(), sphereTarget(2, -5, 5), cfg, rand.New(rand.NewSource(8)),
		WithObserver(func(g Generation) { last = g }))
	require.NoError(t, err)

	assert.Less(t, last.BestValue, 1e-4)
	assert.InDelta(t, last.BestValue, sphere(last.Best), 1e-15)
	assert.Equal(t, last.Iteration, res.Iterations)
	assert.LessOrEqual(t, res.Value, last.BestValue)
}

func TestRunValidation(t *testing.T) {
	valid := sphereTarget(2, -1, 1)

	tests := []struct {
		name   string
		target Target
		mutate func(*Config)
	}{
		{"population too small", valid, func(c *Config) { c.PopulationSize = 2 }},
		{"zero dimensions", sphereTarget(0, -1, 1), nil},
		{"inverted bounds", sphereTarget(2, 1, -1), nil},
		{"infinite bound", sphereTarget(2, math.Inf(-1), 1), nil},
		{"NaN bound", sphereTarget(2, -1, math.NaN()), nil},
		{"missing objective", Target{Dimensions: 2, LeftBound: -1, RightBound: 1}, nil},
		{"crossover above one", valid, func(c *Config) { c.CrossoverProbability = 1.5 }},
		{"negative lambda", valid, func(c *Config) { c.Lambda = -0.1 }},
		{"unset stop condition", valid, func(c *Config) { c.Stop = StopCondition{} }},
		{"unknown stop condition", valid, func(c *Config) { c.Stop.Kind = 7 }},
		{"NaN threshold", valid, func(c *Config) { c.Stop = WhenSatisfied(math.NaN()) }},
		{"unknown crossover mode", valid, func(c *Config) { c.Crossover = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			calls := 0
			if tt.target.Objective != nil {
				inner := tt.target.Objective
				tt.target.Objective = func(v Vector) float64 { calls++; return inner(v) }
			}

			res, err := Run(context.Background(), tt.target, cfg, rand.New(rand.NewSource(1)))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, optimization.ErrInvalidConfig), "got %v", err)
			assert.Zero(t, calls, "objective must not run on invalid config")
		})
	}

	t.Run("missing random source", func(t *testing.T) {
		_, err := Run(context.Background(), valid, testConfig(), nil)
		assert.True(t, errors.Is(err, optimization.ErrInvalidConfig))
	})

	t.Run("equal bounds are valid", func(t *testing.T) {
		best, err := Minimize(sphereTarget(2, 1, 1), testConfig(), rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		assert.Equal(t, Vector{1, 1}, best)
	})
}

func TestRunMemoryBudget(t *testing.T) {
	target := sphereTarget(10, -1, 1)
	cfg := testConfig()
	cfg.Stop = AfterIterations(2)
	need := int64(2 * cfg.PopulationSize * 10 * 8)

	t.Run("exhausted budget", func(t *testing.T) {
		budget := semaphore.NewWeighted(need - 1)
		_, err := Run(context.Background(), target, cfg, rand.New(rand.NewSource(1)), WithMemoryBudget(budget))
		require.Error(t, err)
		assert.True(t, errors.Is(err, optimization.ErrOutOfMemory))
	})

	t.Run("reservation is released", func(t *testing.T) {
		budget := semaphore.NewWeighted(need)
		for i := 0; i < 3; i++ {
			_, err := Run(context.Background(), target, cfg, rand.New(rand.NewSource(int64(i))), WithMemoryBudget(budget))
			require.NoError(t, err)
		}
		assert.True(t, budget.TryAcquire(need), "budget should be fully available after runs")
	})
}

func TestPopulationShapeOverflow(t *testing.T) {
	_, err := newPopulation(math.MaxInt/4, 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrOutOfMemory))

	_, err = newWorkspace(math.MaxInt/2, 3, nil, nil)
	assert.True(t, errors.Is(err, optimization.ErrOutOfMemory))
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.Stop = AfterIterations(1000)

	generations := 0
	res, err := Run(ctx, sphereTarget(2, -5, 5), cfg, rand.New(rand.NewSource(1)),
		WithObserver(func(g Generation) {
			generations++
			if g.Iteration == 3 {
				cancel()
			}
		}))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, generations)
}

func TestRunWithMatrixPool(t *testing.T) {
	pool := NewMatrixPool(0)
	cfg := testConfig()
	cfg.Stop = AfterIterations(5)

	for i := 0; i < 3; i++ {
		_, err := Run(context.Background(), sphereTarget(3, -1, 1), cfg, rand.New(rand.NewSource(int64(i))), WithMatrixPool(pool))
		require.NoError(t, err)
		assert.Equal(t, 2, pool.Len(), "both populations return to the pool")
	}
}

func TestResultIsCallerOwned(t *testing.T) {
	cfg := testConfig()
	cfg.Stop = AfterIterations(3)
	pool := NewMatrixPool(0)

	res, err := Run(context.Background(), sphereTarget(2, -5, 5), cfg, rand.New(rand.NewSource(5)), WithMatrixPool(pool))
	require.NoError(t, err)
	kept := res.Best.Clone()

	// A second run reuses the pooled storage; the first result must not change.
	_, err = Run(context.Background(), sphereTarget(2, -5, 5), cfg, rand.New(rand.NewSource(6)), WithMatrixPool(pool))
	require.NoError(t, err)
	assert.Equal(t, kept, res.Best)
}

func BenchmarkMinimize(b *testing.B) {
	target := sphereTarget(30, -10, 10)
	cfg := testConfig()
	cfg.PopulationSize = 50
	cfg.Stop = AfterIterations(100)
	pool := NewMatrixPool(0)
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Minimize(target, cfg, rng, WithMatrixPool(pool)); err != nil {
			b.Fatal(err)
		}
	}
}
