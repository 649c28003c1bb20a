package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ResponseWriter records the status and body size written by a handler
type ResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// StatusCode returns the first status written, 200 if none was written
func (rw *ResponseWriter) StatusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// BytesWritten is the body size so far
func (rw *ResponseWriter) BytesWritten() int {
	return rw.bytes
}

// LoggingMiddleware logs diagnostics requests at debug level and failed ones at warn
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &ResponseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			status := rw.StatusCode()
			level := zap.DebugLevel
			if status >= http.StatusBadRequest {
				level = zap.WarnLevel
			}
			logger.Log(level, "Diagnostics request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", rw.bytes),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
