package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const DefaultRequestTimeout = 30 * time.Second

type HTTPServer struct {
	httpServer *http.Server
}

// NewHTTPServer bounds every request by requestTimeout. Building a
// transaction may wait for the buyer's token account to be created, so the
// timeout is longer than a plain API would use.
func NewHTTPServer(
	addr string, handler http.Handler, requestTimeout time.Duration,
) HTTPServer {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	s := &http.Server{
		Addr:              addr,
		Handler:           RequestDeadline(requestTimeout, handler),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return HTTPServer{s}
}

func (s HTTPServer) Run(stopFn context.CancelFunc) {
	const op = "HTTPServer.Run"
	log := slog.With("op", op)

	defer stopFn()
	log.Info("listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		log.Error("unexpected servers shutdown", "err", err)
	}
}

func (s HTTPServer) Close(ctx context.Context) {
	const op = "HTTPServer.Close"
	log := slog.With("op", op)

	log.Info("closing http server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Error("failed to shutdown gracefully", "err", err)
	}
	log.Info("http server is closed")
}
