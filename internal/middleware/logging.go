package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// responseMeter remembers what the handler wrote so it can be logged.
type responseMeter struct {
	http.ResponseWriter
	status int
	size   int
}

func (m *responseMeter) WriteHeader(code int) {
	m.status = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(b []byte) (int, error) {
	n, err := m.ResponseWriter.Write(b)
	m.size += n
	return n, err
}

// RequestLogger tags every response with a request id (reusing the caller's
// X-Request-ID when present) and logs one line when the handler returns.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			start := time.Now()
			meter := &responseMeter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(meter, r)

			level := slog.LevelInfo
			if meter.status >= 500 {
				level = slog.LevelError
			} else if meter.status >= 400 {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", meter.status),
				slog.Int("bytes", meter.size),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", RealIP(r)),
			)
		})
	}
}
