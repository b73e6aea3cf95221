package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"authserver/internal/domain"
)

// ctxKey is the key space for all request-scoped values this package
// stores: the request id and the verified bearer claims.
type ctxKey int

const (
	requestIDKey ctxKey = iota
	authClaimsKey
)

// RequestID tags every request with an id, honoring one supplied by the
// routing layer in front of this service.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// RequestLogger logs one line per request. Server faults log at warn so
// they stand out without scanning status fields.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tracker := &responseTracker{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(tracker, r)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", tracker.status,
				"bytes", tracker.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", r.RemoteAddr,
			}
			if rid, ok := GetRequestID(r.Context()); ok {
				fields = append(fields, "request_id", rid)
			}

			if tracker.status >= http.StatusInternalServerError {
				logger.Warn("http request", fields...)
			} else {
				logger.Info("http request", fields...)
			}
		})
	}
}

// Recoverer turns handler panics into the standard error envelope.
// Stack traces stay out of prod logs.
func Recoverer(logger *slog.Logger, isProd bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					fields := []any{"panic", rec, "path", r.URL.Path}
					if rid, ok := GetRequestID(r.Context()); ok {
						fields = append(fields, "request_id", rid)
					}
					if !isProd {
						fields = append(fields, "stack", string(debug.Stack()))
					}
					logger.Error("handler panic", fields...)
					WriteDomainError(w, domain.ErrInternal)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseTracker struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *responseTracker) WriteHeader(statusCode int) {
	t.status = statusCode
	t.ResponseWriter.WriteHeader(statusCode)
}

func (t *responseTracker) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.bytes += n
	return n, err
}
