package de

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/dever/internal/optimization"
)

// engine runs the phases of one generation against a workspace. Phases
// must run in the order reproduce, mutate, crossover, select.
type engine struct {
	target Target
	cfg    Config
	rng    Source
	log    *zap.Logger
	ws     *workspace

	evaluations int
	warnings    int
}

// evaluate calls the objective and counts the call.
func (e *engine) evaluate(v Vector) float64 {
	e.evaluations++
	return e.target.Objective(v)
}

// getBest returns the index and value of the member of pop with the lowest
// f. Ties keep the lowest index. f is called exactly pop.Size() times.
func getBest(pop *Population, f func(Vector) float64) (int, float64) {
	best, bestValue := 0, f(pop.At(0))
	for i := 1; i < pop.Size(); i++ {
		if value := f(pop.At(i)); value < bestValue {
			best, bestValue = i, value
		}
	}
	return best, bestValue
}

// reproduce records the current best and blends every trial vector toward
// it: probe[i] = lambda*best + (1-lambda)*main[i].
func (e *engine) reproduce() {
	ws := e.ws
	ws.best, ws.bestValue = getBest(ws.main, e.evaluate)

	best := ws.main.At(ws.best)
	lambda := e.cfg.Lambda
	for i := 0; i < ws.main.Size(); i++ {
		m, p := ws.main.At(i), ws.probe.At(i)
		for j := range p {
			p[j] = lambda*best[j] + (1-lambda)*m[j]
		}
	}
}

// partners draws r2 != i and r3 not in {i, r2} uniformly from [0, n).
// n must be at least MinPopulationSize.
func (e *engine) partners(i, n int) (int, int) {
	r2 := e.rng.Intn(n)
	for r2 == i {
		r2 = e.rng.Intn(n)
	}
	r3 := e.rng.Intn(n)
	for r3 == i || r3 == r2 {
		r3 = e.rng.Intn(n)
	}
	return r2, r3
}

// mutate adds the scaled difference of two random partners to every trial
// vector and clamps the result into the search box.
func (e *engine) mutate() error {
	ws := e.ws
	n := ws.main.Size()
	if n < MinPopulationSize {
		return optimization.InvalidConfigf("population size must be at least %d to draw distinct partners, got %d", MinPopulationSize, n).
			WithComponent("de").WithOperation("mutate")
	}

	f := e.cfg.AmplificationFactor
	left, right := e.target.LeftBound, e.target.RightBound
	for i := 0; i < n; i++ {
		r2, r3 := e.partners(i, n)
		p, x2, x3 := ws.probe.At(i), ws.main.At(r2), ws.main.At(r3)
		for j := range p {
			x := p[j] + f*(x2[j]-x3[j])
			if x < left {
				x = left
			} else if x > right {
				x = right
			}
			p[j] = x
			if !(x >= left && x <= right) {
				e.integrityWarning(i, j, x)
			}
		}
	}
	return nil
}

// integrityWarning reports a coordinate that escaped clamping. The run
// continues.
func (e *engine) integrityWarning(individual, dimension int, value float64) {
	e.warnings++
	err := optimization.IntegrityWarningf("coordinate out of bounds after clamping").
		WithComponent("de").WithOperation("mutate")
	e.log.Warn("integrity check failed",
		zap.Error(err),
		zap.Int("individual", individual),
		zap.Int("dimension", dimension),
		zap.Float64("value", value),
		zap.Float64("left_bound", e.target.LeftBound),
		zap.Float64("right_bound", e.target.RightBound),
	)
}

// crossover resets trial coordinates back to their parent's unless the
// keep draw falls below CR. One randomly chosen dimension per individual
// always keeps its mutated value.
func (e *engine) crossover() {
	ws := e.ws
	dims := e.target.Dimensions
	cr := e.cfg.CrossoverProbability
	for i := 0; i < ws.probe.Size(); i++ {
		p, m := ws.probe.At(i), ws.main.At(i)
		d := e.rng.Intn(dims)
		for j := 0; j < dims; j++ {
			if j == d {
				continue
			}
			if e.keepDraw(dims) < cr {
				continue
			}
			p[j] = m[j]
		}
	}
}

func (e *engine) keepDraw(dims int) float64 {
	if e.cfg.Crossover == CrossoverBinomial {
		return e.rng.Float64()
	}
	return float64(e.rng.Intn(dims))
}

// selection replaces each parent with its trial vector when the trial is
// strictly better. Ties keep the parent.
func (e *engine) selection() {
	ws := e.ws
	for i := 0; i < ws.main.Size(); i++ {
		m, p := ws.main.At(i), ws.probe.At(i)
		parent := e.evaluate(m)
		if e.evaluate(p) < parent {
			copy(m, p)
		}
	}
}

// checkStop reports whether the loop should end after count generations.
func (e *engine) checkStop(count uint64) (bool, error) {
	stop := e.cfg.Stop
	switch stop.Kind {
	case StopAfterIterations:
		return count > stop.Iterations, nil
	case StopWhenSatisfied:
		return e.ws.bestValue < stop.Threshold, nil
	default:
		return true, optimization.InvalidConfigf("unknown stop condition %d", stop.Kind).
			WithComponent("de").WithOperation("checkStop")
	}
}
