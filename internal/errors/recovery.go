package errors

import (
	"net/http"

	"go.uber.org/zap"
)

// RecoveryMiddleware returns a middleware that recovers from panics and
// answers 500.
func RecoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					err := Errorf("panic in %s %s: %v", r.Method, r.URL.Path, rec)
					logger.Error("recovered from panic", append(Fields(err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("query", r.URL.RawQuery),
					)...)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorHandler is a middleware that logs every response with a status of
// 400 or above.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			if rw.status >= http.StatusBadRequest {
				logger.Warn("request error",
					zap.Int("status", rw.status),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("query", r.URL.RawQuery),
					zap.String("ip", r.RemoteAddr),
				)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before writing the header.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Fields returns zap fields for err, adding the job ID and stack when err
// carries them.
func Fields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var e *Error
	if !As(err, &e) {
		return fields
	}
	if id := jobID(err); id != "" {
		fields = append(fields, zap.String("optimization_id", id))
	}
	if stack := e.StackTrace(); len(stack) > 0 {
		fields = append(fields, zap.Strings("stack", stack))
	}
	return fields
}

// jobID returns the first job ID found in err's chain.
func jobID(err error) string {
	for ; err != nil; err = Unwrap(err) {
		if e, ok := err.(*Error); ok && e.JobID != "" {
			return e.JobID
		}
	}
	return ""
}
