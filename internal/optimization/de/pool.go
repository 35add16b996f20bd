package de

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// DefaultPoolLimit bounds the idle storage of a pool created with a
// non-positive limit.
const DefaultPoolLimit = 64 << 20

// MatrixPool recycles population arenas between runs of the same shape.
// A nil *MatrixPool is valid and always allocates.
//
// Idle storage is bounded by a byte limit. When a returned matrix does not
// fit, the oldest idle matrices are dropped to make room; a matrix larger
// than the limit is dropped itself.
//
// Recycled matrices are not zeroed: every generation overwrites the probe
// population and seeding overwrites the main population.
type MatrixPool struct {
	mu    sync.Mutex
	limit int64
	bytes int64
	// idle holds pooled matrices oldest first.
	idle []*mat.Dense
}

// NewMatrixPool creates a pool keeping at most limit bytes of idle
// matrices. A non-positive limit selects DefaultPoolLimit.
func NewMatrixPool(limit int64) *MatrixPool {
	if limit <= 0 {
		limit = DefaultPoolLimit
	}
	return &MatrixPool{limit: limit}
}

func matrixBytes(m *mat.Dense) int64 {
	r, c := m.Dims()
	return int64(r) * int64(c) * 8
}

// Get returns an r x c matrix from the pool or creates a new one
func (p *MatrixPool) Get(r, c int) *mat.Dense {
	if p == nil {
		return mat.NewDense(r, c, nil)
	}

	p.mu.Lock()
	for i := len(p.idle) - 1; i >= 0; i-- {
		m := p.idle[i]
		if mr, mc := m.Dims(); mr == r && mc == c {
			last := len(p.idle) - 1
			copy(p.idle[i:], p.idle[i+1:])
			p.idle[last] = nil
			p.idle = p.idle[:last]
			p.bytes -= matrixBytes(m)
			p.mu.Unlock()
			return m
		}
	}
	p.mu.Unlock()

	return mat.NewDense(r, c, nil)
}

// Put returns a matrix to the pool
func (p *MatrixPool) Put(m *mat.Dense) {
	if p == nil || m == nil {
		return
	}
	size := matrixBytes(m)
	if size > p.limit {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	evict := 0
	for p.bytes+size > p.limit {
		p.bytes -= matrixBytes(p.idle[evict])
		p.idle[evict] = nil
		evict++
	}
	p.idle = append(p.idle[evict:], m)
	p.bytes += size
}

// Len returns the number of idle matrices held by the pool.
func (p *MatrixPool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// IdleBytes returns the storage held by idle matrices.
func (p *MatrixPool) IdleBytes() int64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}
