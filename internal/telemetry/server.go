// Package telemetry serves prometheus metrics and a health probe while
// `leadboard watch` keeps the board in sync.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/leadboard/leadboard-cli/pkg/board"
)

// StatusSource reports synchronizer health
type StatusSource interface {
	Status() board.Status
}

// Health is the /healthz body
type Health struct {
	Status     string     `json:"status"`
	Loaded     bool       `json:"loaded"`
	Scope      string     `json:"scope"`
	LastLoaded *time.Time `json:"last_loaded,omitempty"`
	Pending    int        `json:"pending_moves"`
	Error      string     `json:"error,omitempty"`
}

// Routes mounts /metrics and /healthz. Health is "ok" once a load has
// succeeded and the latest load did not fail, "degraded" otherwise.
func Routes(gatherer prometheus.Gatherer, status StatusSource, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		}))
	}

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := status.Status()
		h := Health{
			Status:  "ok",
			Loaded:  st.Loaded,
			Scope:   st.Scope.String(),
			Pending: st.Pending,
		}
		if !st.LastLoaded.IsZero() {
			t := st.LastLoaded
			h.LastLoaded = &t
		}
		code := http.StatusOK
		if st.Err != nil {
			h.Error = st.Err.Error()
		}
		if !st.Loaded || st.Err != nil {
			h.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(h)
	})
	return r
}

// Server is the telemetry HTTP listener
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
}

// Listen binds addr; use ":0" for an ephemeral port
func Listen(addr string, handler http.Handler, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry listen on %s: %w", addr, err)
	}
	return &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
	}, nil
}

// Addr is the bound address
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until the server is shut down
func (s *Server) Serve() error {
	s.logger.Info("telemetry listening", zap.String("addr", s.Addr()))
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
