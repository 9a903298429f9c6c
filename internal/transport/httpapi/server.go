package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
)

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server owns the listener. Start returns once the socket is bound; serving
// continues in the background until Shutdown.
type Server struct {
	cfg   ServerConfig
	http  *http.Server
	errCh chan error
}

func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
		},
		errCh: make(chan error, 1),
	}
}

func (s *Server) Start(ctx context.Context) error {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "transport.http"))

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errs.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	logging.Info(logCtx, "http server listening", slog.String("addr", ln.Addr().String()))

	go func() {
		err := s.http.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(logCtx, "http server failed", slog.Any("err", errs.Loggable(err)))
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

// Done yields the serve error, if any, and is closed when serving stops.
func (s *Server) Done() <-chan error {
	return s.errCh
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, "shutdown http server")
	}
	logging.Info(logging.WithAttrs(ctx, slog.String("component", "transport.http")), "http server stopped")
	return nil
}
