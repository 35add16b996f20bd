package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", &Error{Message: "boom"}, "boom"},
		{"with job", &Error{Message: "boom", JobID: "abc"}, "job abc: boom"},
		{"with cause", &Error{Message: "boom", Err: fmt.Errorf("cause")}, "boom: cause"},
		{"cause only", &Error{Err: fmt.Errorf("cause")}, "cause"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))

	base := New("root")
	require.NotEmpty(t, base.StackTrace())

	wrapped := Wrapf(base, "starting job %s", "abc")
	assert.Equal(t, "starting job abc: root", wrapped.Error())
	assert.Equal(t, "root", base.Message, "wrapping must not modify the inner error")
	assert.Equal(t, base.StackTrace(), wrapped.StackTrace(), "the innermost stack is kept")

	plain := Wrap(context.Canceled, "run cancelled")
	assert.NotEmpty(t, plain.StackTrace())
	assert.True(t, Is(plain, context.Canceled))
}

func TestIsAs(t *testing.T) {
	inner := Errorf("inner %d", 1)
	outer := fmt.Errorf("outer: %w", Wrap(inner, "middle"))

	assert.True(t, Is(outer, inner))
	assert.False(t, Is(outer, stderrors.New("inner 1")), "distinct errors with the same text do not match")

	var target *Error
	require.True(t, As(outer, &target))
	assert.Equal(t, "middle", target.Message)
	assert.False(t, As(nil, &target))

	assert.Equal(t, inner, Unwrap(Wrap(inner, "x")))
}

func TestStackTrace(t *testing.T) {
	stack := New("boom").StackTrace()
	require.NotEmpty(t, stack)
	assert.Contains(t, stack[0], "TestStackTrace")
	for _, frame := range stack {
		assert.NotContains(t, frame, "internal/errors/errors.go")
	}

	assert.Nil(t, (&Error{Message: "no stack"}).StackTrace())
}

func TestWrapKeepsJob(t *testing.T) {
	err := Wrap(New("budget exhausted").WithJob("abc"), "start")
	assert.Empty(t, err.JobID)
	assert.Equal(t, "start: job abc: budget exhausted", err.Error())

	fields := Fields(err)
	require.Len(t, fields, 3)
	assert.Equal(t, "optimization_id", fields[1].Key)
	assert.Equal(t, "abc", fields[1].String)
}

func TestFields(t *testing.T) {
	withStack := Fields(New("boom"))
	require.Len(t, withStack, 2)
	assert.Equal(t, "stack", withStack[1].Key)

	withJob := Fields(Wrap(context.Canceled, "run").WithJob("abc"))
	require.Len(t, withJob, 3)
	assert.Equal(t, "optimization_id", withJob[1].Key)
	assert.Equal(t, "abc", withJob[1].String)

	assert.Len(t, Fields(stderrors.New("plain")), 1)
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("objective exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/optimize", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entries := logs.FilterMessage("recovered from panic").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/api/v1/optimize", entries[0].ContextMap()["path"])
}

func TestErrorHandler(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	handler := ErrorHandler(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(http.StatusNotFound), logs.All()[0].ContextMap()["status"])
}
