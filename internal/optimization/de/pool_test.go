package de

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestMatrixPoolReuse(t *testing.T) {
	pool := NewMatrixPool(0)
	m := pool.Get(4, 3)
	pool.Put(m)
	assert.Equal(t, 1, pool.Len())
	assert.Equal(t, int64(4*3*8), pool.IdleBytes())

	assert.Same(t, m, pool.Get(4, 3))
	assert.Zero(t, pool.Len())
	assert.Zero(t, pool.IdleBytes())

	other := pool.Get(3, 4)
	assert.NotSame(t, m, other, "shapes are not mixed")
}

func TestMatrixPoolBoundsIdleStorage(t *testing.T) {
	const dims = 50
	limit := int64(4 * 3 * dims * 8)
	pool := NewMatrixPool(limit)

	var last *mat.Dense
	for size := 3; size < 203; size++ {
		for i := 0; i < 2; i++ {
			last = mat.NewDense(size, dims, nil)
			pool.Put(last)
			assert.LessOrEqual(t, pool.IdleBytes(), limit)
		}
	}
	assert.LessOrEqual(t, pool.Len(), 4)

	// Matrices larger than the limit are never kept.
	small := mat.NewDense(3, dims, nil)
	pool.Put(small)
	assert.Same(t, small, pool.Get(3, dims))
	assert.NotSame(t, last, pool.Get(202, dims))
}

func TestMatrixPoolEvictsOldest(t *testing.T) {
	pool := NewMatrixPool(3 * 8)
	first := mat.NewDense(1, 1, nil)
	second := mat.NewDense(1, 1, nil)
	third := mat.NewDense(1, 2, nil)

	pool.Put(first)
	pool.Put(second)
	pool.Put(third)

	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, int64(3*8), pool.IdleBytes())
	assert.Same(t, second, pool.Get(1, 1))
	assert.Same(t, third, pool.Get(1, 2))
	assert.NotSame(t, first, pool.Get(1, 1))
}

func TestMatrixPoolNil(t *testing.T) {
	var pool *MatrixPool
	m := pool.Get(2, 2)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	pool.Put(m)
	assert.Zero(t, pool.Len())
	assert.Zero(t, pool.IdleBytes())
}
