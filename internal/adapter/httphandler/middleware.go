package httphandler

import (
	"context"
	"net/http"
	"strings"
	"time"
)

func AllowJSON(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		if mediaType(r.Header.Get("Content-Type")) != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, "invalid media type")
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

// RequestDeadline cancels the request context after timeout. Handlers see
// the cancellation as a failed call and answer with their own JSON error.
func RequestDeadline(timeout time.Duration, next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(hf)
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mt)
}

type RequestObserver interface {
	ObserveRequest(route, method string, status int, d time.Duration)
}

// Instrument reports every request to obs. It must wrap the mux directly,
// the route label is the pattern the mux matched.
func Instrument(obs RequestObserver, next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		obs.ObserveRequest(r.Pattern, r.Method, sw.status, time.Since(start))
	}
	return http.HandlerFunc(hf)
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
