// Package functions is a catalogue of benchmark objectives for the
// differential evolution minimizer.
package functions

import (
	"math"
	"sort"

	gonumfn "gonum.org/v1/gonum/optimize/functions"

	"github.com/copyleftdev/dever/internal/optimization"
	"github.com/copyleftdev/dever/internal/optimization/de"
)

// Function describes a benchmark objective and its search box.
type Function struct {
	// Name is the catalogue key.
	Name string
	// Objective evaluates a point.
	Objective func(x []float64) float64
	// Dimensions is the fixed dimensionality, or 0 if any is accepted.
	Dimensions int
	// Bounds is the [left, right] box applied to every coordinate.
	Bounds [2]float64
	// Minimum is the known global minimum value.
	Minimum float64
	// Optimum returns a point attaining Minimum in dims dimensions.
	Optimum func(dims int) []float64
}

// Target builds a minimizer target over the function's box. A dims of 0
// selects the function's fixed dimensionality.
func (f Function) Target(dims int) (de.Target, error) {
	if dims == 0 {
		dims = f.Dimensions
	}
	if f.Dimensions != 0 && dims != f.Dimensions {
		return de.Target{}, optimization.InvalidConfigf("function %q is %d-dimensional, got %d", f.Name, f.Dimensions, dims).
			WithComponent("functions").WithOperation("target")
	}
	if dims < 1 {
		return de.Target{}, optimization.InvalidConfigf("function %q needs a dimension count", f.Name).
			WithComponent("functions").WithOperation("target")
	}
	return de.Target{
		Objective:  de.FromFunc(f.Objective),
		Dimensions: dims,
		LeftBound:  f.Bounds[0],
		RightBound: f.Bounds[1],
	}, nil
}

var registry = map[string]Function{}

func register(f Function) {
	registry[f.Name] = f
}

// Lookup returns the function registered under name.
func Lookup(name string) (Function, error) {
	f, ok := registry[name]
	if !ok {
		return Function{}, optimization.InvalidConfigf("unknown function %q", name).
			WithComponent("functions").WithOperation("lookup")
	}
	return f, nil
}

// Names returns the registered names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func zeros(dims int) []float64 {
	return make([]float64, dims)
}

func fill(v float64) func(int) []float64 {
	return func(dims int) []float64 {
		x := make([]float64, dims)
		for i := range x {
			x[i] = v
		}
		return x
	}
}

func point(x ...float64) func(int) []float64 {
	return func(int) []float64 { return append([]float64(nil), x...) }
}

func init() {
	// n-dimensional
	register(Function{Name: "sphere", Objective: Sphere, Bounds: [2]float64{-10, 10}, Optimum: zeros})
	register(Function{Name: "shifted_sphere", Objective: ShiftedSphere, Bounds: [2]float64{-50, 50},
		Optimum: func(dims int) []float64 {
			x := make([]float64, dims)
			for i := range x {
				x[i] = float64(i + 1)
			}
			return x
		}})
	register(Function{Name: "ackley", Objective: Ackley, Bounds: [2]float64{-32.768, 32.768}, Optimum: zeros})
	register(Function{Name: "rastrigin", Objective: Rastrigin, Bounds: [2]float64{-5.12, 5.12}, Optimum: zeros})
	register(Function{Name: "weierstrass", Objective: Weierstrass, Bounds: [2]float64{-0.5, 0.5}, Optimum: zeros})
	register(Function{Name: "rosenbrock", Objective: gonumfn.ExtendedRosenbrock{}.Func, Bounds: [2]float64{-5, 10}, Optimum: fill(1)})
	register(Function{Name: "wood", Objective: gonumfn.Wood{}.Func, Dimensions: 4, Bounds: [2]float64{-10, 10}, Optimum: fill(1)})

	// two-dimensional
	register(Function{Name: "beale", Objective: gonumfn.Beale{}.Func, Dimensions: 2, Bounds: [2]float64{-4.5, 4.5}, Optimum: point(3, 0.5)})
	register(Function{Name: "booth", Objective: Booth, Dimensions: 2, Bounds: [2]float64{-10, 10}, Optimum: point(1, 3)})
	register(Function{Name: "matyas", Objective: Matyas, Dimensions: 2, Bounds: [2]float64{-10, 10}, Optimum: point(0, 0)})
	register(Function{Name: "himmelblau", Objective: Himmelblau, Dimensions: 2, Bounds: [2]float64{-5, 5}, Optimum: point(3, 2)})
	register(Function{Name: "three_humps", Objective: ThreeHumps, Dimensions: 2, Bounds: [2]float64{-5, 5}, Optimum: point(0, 0)})
	register(Function{Name: "easom", Objective: Easom, Dimensions: 2, Bounds: [2]float64{-100, 100}, Minimum: -1, Optimum: point(math.Pi, math.Pi)})
	register(Function{Name: "eggholder", Objective: Eggholder, Dimensions: 2, Bounds: [2]float64{-512, 512}, Minimum: -959.6407, Optimum: point(512, 404.2319)})
	register(Function{Name: "holder", Objective: Holder, Dimensions: 2, Bounds: [2]float64{-10, 10}, Minimum: -19.2085, Optimum: point(8.05502, 9.66459)})
	register(Function{Name: "mccormick", Objective: McCormick, Dimensions: 2, Bounds: [2]float64{-3, 4}, Minimum: -1.9133, Optimum: point(-0.54719, -1.54719)})
	register(Function{Name: "schaffer2", Objective: Schaffer2, Dimensions: 2, Bounds: [2]float64{-100, 100}, Optimum: point(0, 0)})
	register(Function{Name: "schaffer4", Objective: Schaffer4, Dimensions: 2, Bounds: [2]float64{-100, 100}, Minimum: 0.292579, Optimum: point(0, 1.25313)})
	register(Function{Name: "goldstein_price", Objective: GoldsteinPrice, Dimensions: 2, Bounds: [2]float64{-2, 2}, Minimum: 3, Optimum: point(0, -1)})
	register(Function{Name: "levi", Objective: Levi, Dimensions: 2, Bounds: [2]float64{-10, 10}, Optimum: point(1, 1)})
	register(Function{Name: "cross_in_tray", Objective: CrossInTray, Dimensions: 2, Bounds: [2]float64{-10, 10}, Minimum: -2.06261, Optimum: point(1.34941, 1.34941)})
	register(Function{Name: "bukin", Objective: Bukin, Dimensions: 2, Bounds: [2]float64{-15, 3}, Optimum: point(-10, 1)})
}
