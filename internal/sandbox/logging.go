package sandbox

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"
)

// responseRecorder captures the status and body size for the request log.
// Hijack must pass through for the websocket upgrade on /ws.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *responseRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// requestLoggingMiddleware logs every request with the sandbox session that
// issued it, so interleaved console runs against one sandbox stay readable.
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", recorder.bytes,
		}
		if r.URL.RawQuery != "" {
			fields = append(fields, "query", r.URL.RawQuery)
		}
		if session, ok := s.sessions.lookup(bearerToken(r)); ok {
			fields = append(fields, "user", session.UserEmail)
			if session.Impersonating {
				fields = append(fields, "impersonating", session.ImpersonatedEmail)
			}
		}
		s.logger.Info("http request", fields...)
	})
}
