package de

import (
	"github.com/copyleftdev/dever/internal/optimization"
)

// MemoryBudget accounts for population storage in bytes.
// *golang.org/x/sync/semaphore.Weighted satisfies it.
type MemoryBudget interface {
	TryAcquire(n int64) bool
	Release(n int64)
}

// workspace holds the state of one run: the accepted population, the
// trial population and the index of the best accepted individual.
//
// best indexes into main and is only valid between reproduce and select
// of the same generation.
type workspace struct {
	main      *Population
	probe     *Population
	best      int
	bestValue float64

	budget   MemoryBudget
	reserved int64
	pool     *MatrixPool
}

// newWorkspace reserves storage for two populations against budget and
// allocates them. Any failure leaves nothing reserved.
func newWorkspace(size, dims int, budget MemoryBudget, pool *MatrixPool) (*workspace, error) {
	perPopulation, err := populationBytes(size, dims)
	if err != nil {
		return nil, err
	}
	ws := &workspace{budget: budget, pool: pool}

	if budget != nil {
		need := 2 * perPopulation
		if !budget.TryAcquire(need) {
			return nil, optimization.OutOfMemoryf("memory budget exhausted: need %d bytes for %d individuals", need, size).
				WithComponent("de").WithOperation("allocate")
		}
		ws.reserved = need
	}

	if ws.main, err = newPopulation(size, dims, pool); err != nil {
		ws.release()
		return nil, err
	}
	if ws.probe, err = newPopulation(size, dims, pool); err != nil {
		ws.release()
		return nil, err
	}
	return ws, nil
}

// release returns storage to the pool and the reservation to the budget.
// It is safe to call more than once.
func (ws *workspace) release() {
	ws.main.release(ws.pool)
	ws.probe.release(ws.pool)
	if ws.budget != nil && ws.reserved > 0 {
		ws.budget.Release(ws.reserved)
		ws.reserved = 0
	}
}

// generate overwrites the main population with coordinates drawn
// uniformly from [left, right].
func (ws *workspace) generate(rng Source, left, right float64) {
	width := right - left
	for i := 0; i < ws.main.Size(); i++ {
		v := ws.main.At(i)
		for j := range v {
			v[j] = left + width*rng.Float64()
		}
	}
}
