// Package server exposes a running simulation session over HTTP.
//
// The server owns one graph, its layout, and a stepping driver. Clients read
// the structure and the continuously evolving positions, extract neighborhood
// subgraphs, and pause or resume the simulation. The API is read-mostly; the
// only mutations are the start and pause toggles.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	lodeerrors "github.com/lodestar-viz/lodestar/pkg/errors"
	"github.com/lodestar-viz/lodestar/pkg/graph"
	"github.com/lodestar-viz/lodestar/pkg/layout"
	"github.com/lodestar-viz/lodestar/pkg/sim"
)

// shutdownTimeout bounds graceful drain on context cancellation.
const shutdownTimeout = 5 * time.Second

// Server serves one simulation session.
type Server struct {
	g         *graph.Graph
	l         layout.Layout
	algorithm string
	driver    *sim.Driver
	logger    *log.Logger
}

// New creates a server for the graph and its constructed layout.
func New(g *graph.Graph, l layout.Layout, algorithm string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		g:         g,
		l:         l,
		algorithm: algorithm,
		driver:    sim.NewDriver(g, sim.WithLogger(logger)),
		logger:    logger,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/graph", s.handleGraph)
		r.Get("/positions", s.handlePositions)
		r.Get("/subgraph", s.handleSubgraph)
		r.Post("/layout/start", s.handleStart)
		r.Post("/layout/pause", s.handlePause)
	})

	return r
}

// Run starts the stepping driver and the HTTP listener, and blocks until the
// context is cancelled or the listener fails. The driver shares the context,
// so cancelling stops both.
func (s *Server) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := s.driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("driver stopped", "err", err)
			cancel()
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// statusResponse reports the session state.
type statusResponse struct {
	Algorithm string `json:"algorithm"`
	DOF       int    `json:"dof"`
	Step      int    `json:"step"`
	Running   bool   `json:"running"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	s.g.WithLock(func() {
		resp = statusResponse{
			Algorithm: s.algorithm,
			DOF:       s.l.DOF(),
			Step:      s.l.StepCount(),
			NodeCount: s.l.NodeCount(),
			EdgeCount: s.l.EdgeCount(),
		}
	})
	resp.Running = s.g.LayoutRunning()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, graph.ToFile(s.g))
}

// handlePositions returns a consistent snapshot of the most recently
// completed step. The graph lock excludes the driver for the duration of the
// buffer copy, so a tick never tears the response.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	ids := s.g.NodeIDs()
	var snap layout.Snapshot
	s.g.WithLock(func() {
		snap = layout.Capture(s.algorithm, s.l, ids)
	})
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSubgraph(w http.ResponseWriter, r *http.Request) {
	opts := graph.DefaultSubgraphOptions()
	opts.StartNodeID = r.URL.Query().Get("start")
	if raw := r.URL.Query().Get("hops"); raw != "" {
		hops, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, lodeerrors.New(lodeerrors.ErrCodeInvalidInput, "invalid hops %q", raw))
			return
		}
		opts.Hops = hops
	}

	sub, err := s.g.Subgraph(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph.ToFile(sub))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.g.StartLayout(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.g.PauseLayout()
	writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: lodeerrors.UserMessage(err)}
	if code := lodeerrors.GetCode(err); code != "" {
		resp.Code = string(code)
	}
	writeJSON(w, statusFor(err), resp)
}

// statusFor maps domain errors to HTTP status codes. Sentinels from the graph
// package are checked directly; coded errors map by class.
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, graph.ErrSeedNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrNegativeHops),
		errors.Is(err, graph.ErrNoLayout):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrLayoutSizeMismatch):
		return http.StatusConflict
	}

	switch lodeerrors.GetCode(err) {
	case lodeerrors.ErrCodeInvalidInput, lodeerrors.ErrCodeInvalidFormat, lodeerrors.ErrCodeInvalidLayout, lodeerrors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case lodeerrors.ErrCodeNotFound, lodeerrors.ErrCodeNodeNotFound, lodeerrors.ErrCodeSeedNotFound, lodeerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case lodeerrors.ErrCodeConfigMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
