package de

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/dever/internal/optimization"
)

// Vector is a point in R^n. Its length is its dimensionality.
type Vector []float64

// Dimensions returns the number of coordinates.
func (v Vector) Dimensions() int {
	return len(v)
}

// Clone returns a deep copy of v that shares no storage with it.
func (v Vector) Clone() Vector {
	return append(Vector(nil), v...)
}

// Population is an ordered, fixed-size collection of vectors sharing one
// dimensionality. All members live in a single row-major arena; At(i)
// returns a view of row i.
type Population struct {
	data *mat.Dense
}

// maxElements bounds size*dimensions so that two populations of float64
// never overflow an int byte count.
const maxElements = math.MaxInt / (2 * 8)

// populationBytes returns the storage one population of the given shape
// needs, or an error when the shape cannot be represented.
func populationBytes(size, dims int) (int64, error) {
	if size <= 0 || dims <= 0 {
		return 0, optimization.InvalidConfigf("population shape must be positive, got %dx%d", size, dims).
			WithComponent("de").WithOperation("allocate")
	}
	if size > maxElements/dims {
		return 0, optimization.OutOfMemoryf("population of %d individuals with %d dimensions is too large", size, dims).
			WithComponent("de").WithOperation("allocate")
	}
	return int64(size) * int64(dims) * 8, nil
}

// newPopulation allocates a population of size members with dims
// coordinates each. An allocation panic from the runtime is reported as
// an out-of-memory error rather than crashing the caller.
func newPopulation(size, dims int, pool *MatrixPool) (p *Population, err error) {
	if _, err := populationBytes(size, dims); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = optimization.OutOfMemoryf("allocating %dx%d population: %v", size, dims, r).
				WithComponent("de").WithOperation("allocate")
		}
	}()

	return &Population{data: pool.Get(size, dims)}, nil
}

// Size returns the number of individuals.
func (p *Population) Size() int {
	r, _ := p.data.Dims()
	return r
}

// Dimensions returns the dimensionality shared by every member.
func (p *Population) Dimensions() int {
	_, c := p.data.Dims()
	return c
}

// At returns individual i. The returned vector aliases the population's
// storage; writes through it modify the population.
func (p *Population) At(i int) Vector {
	return p.data.RawRowView(i)
}

// release hands the population's storage back to pool.
func (p *Population) release(pool *MatrixPool) {
	if p == nil || p.data == nil {
		return
	}
	pool.Put(p.data)
	p.data = nil
}
