package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  &Error{Message: "boom"},
			want: "boom",
		},
		{
			name: "component and op",
			err:  (&Error{Message: "boom"}).WithComponent("de").WithOperation("mutate"),
			want: "de: mutate: boom",
		},
		{
			name: "op only",
			err:  (&Error{Message: "boom"}).WithOperation("select"),
			want: "select: boom",
		},
		{
			name: "wrapped",
			err:  WrapErrorf(fmt.Errorf("inner"), "outer").WithComponent("de"),
			want: "de: outer: inner",
		},
		{
			name: "wrapped without prefix",
			err:  WrapErrorf(fmt.Errorf("inner"), "outer %d", 2),
			want: "outer 2: inner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		match  bool
	}{
		{"invalid config", InvalidConfigf("population size %d", 2), ErrInvalidConfig, true},
		{"out of memory", OutOfMemoryf("no room"), ErrOutOfMemory, true},
		{"integrity", IntegrityWarningf("x=%v", 1.5), ErrIntegrity, true},
		{"kind mismatch", OutOfMemoryf("no room"), ErrInvalidConfig, false},
		{"unknown kind never matches", &Error{Message: "plain"}, &Error{}, false},
		{"wrapped by fmt", fmt.Errorf("run: %w", InvalidConfigf("bad")), ErrInvalidConfig, true},
		{"wrapped by WrapErrorf keeps kind", WrapErrorf(OutOfMemoryf("x"), "alloc"), ErrOutOfMemory, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, errors.Is(tt.err, tt.target))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, WrapErrorf(nil, "nothing %d", 1))
}

func TestIsOptimizationError(t *testing.T) {
	_, ok := IsOptimizationError(nil)
	assert.False(t, ok)

	_, ok = IsOptimizationError(errors.New("plain"))
	assert.False(t, ok)

	e, ok := IsOptimizationError(fmt.Errorf("ctx: %w", InvalidConfigf("bad bounds")))
	require.True(t, ok)
	assert.Equal(t, KindInvalidConfig, e.Kind)
	assert.Equal(t, "invalid config", e.Kind.String())
}
