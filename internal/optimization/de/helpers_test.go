package de

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sphere is a simple quadratic objective function for testing
func sphere(v Vector) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return sum
}

// scriptedSource replays fixed draws and fails the test when it runs dry.
type scriptedSource struct {
	t      *testing.T
	ints   []int
	floats []float64
}

func (s *scriptedSource) Intn(n int) int {
	s.t.Helper()
	require.NotEmpty(s.t, s.ints, "scripted source ran out of integers")
	v := s.ints[0]
	s.ints = s.ints[1:]
	require.True(s.t, v >= 0 && v < n, "scripted integer %d outside [0, %d)", v, n)
	return v
}

func (s *scriptedSource) Float64() float64 {
	s.t.Helper()
	require.NotEmpty(s.t, s.floats, "scripted source ran out of floats")
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

// newTestEngine builds an engine over a freshly seeded workspace.
func newTestEngine(t *testing.T, target Target, cfg Config, seed int64) *engine {
	t.Helper()

	ws, err := newWorkspace(cfg.PopulationSize, target.Dimensions, nil, nil)
	require.NoError(t, err)
	t.Cleanup(ws.release)

	rng := rand.New(rand.NewSource(seed))
	ws.generate(rng, target.LeftBound, target.RightBound)

	return &engine{target: target, cfg: cfg, rng: rng, log: zap.NewNop(), ws: ws}
}

// fill sets every member of pop to the given rows.
func fill(t *testing.T, pop *Population, rows ...[]float64) {
	t.Helper()
	require.Equal(t, pop.Size(), len(rows))
	for i, row := range rows {
		require.Equal(t, pop.Dimensions(), len(row))
		copy(pop.At(i), row)
	}
}

// assertWithinBounds checks every coordinate of pop lies in [left, right].
func assertWithinBounds(t *testing.T, pop *Population, left, right float64) {
	t.Helper()
	for i := 0; i < pop.Size(); i++ {
		for j, x := range pop.At(i) {
			if math.IsNaN(x) || x < left || x > right {
				t.Fatalf("member %d coordinate %d = %v outside [%v, %v]", i, j, x, left, right)
			}
		}
	}
}

// testConfig returns the parameters used across engine tests.
func testConfig() Config {
	return Config{
		PopulationSize:       20,
		CrossoverProbability: 0.9,
		AmplificationFactor:  0.5,
		Lambda:               0.5,
		Stop:                 AfterIterations(200),
	}
}

func sphereTarget(dims int, left, right float64) Target {
	return Target{Objective: sphere, Dimensions: dims, LeftBound: left, RightBound: right}
}
