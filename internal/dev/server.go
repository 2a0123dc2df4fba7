package dev

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

// StatusOptions configures the status server.
type StatusOptions struct {
	// Addr is the listen address.
	Addr string

	// Gatherer serves /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Coordinator, when set, reports its state on /healthz.
	Coordinator *Coordinator

	// Logger defaults to slog.Default().With("component", "status").
	Logger *slog.Logger
}

// StatusServer exposes the watch loop over HTTP:
//
//	GET /healthz  last pass summary
//	GET /routes   last good route table
//	GET /metrics  Prometheus metrics
//	GET /events   WebSocket stream of pass events
type StatusServer struct {
	opts        StatusOptions
	logger      *slog.Logger
	broadcaster *Broadcaster
	router      chi.Router

	mu    sync.RWMutex
	last  *pipeline.Outcome
	table *router.RouteTable
}

// RouteInfo is the JSON form of a route table entry.
type RouteInfo struct {
	Pattern string      `json:"pattern"`
	Source  string      `json:"source"`
	Params  []ParamInfo `json:"params"`
}

// ParamInfo is the JSON form of a route parameter.
type ParamInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Health is the /healthz response body.
type Health struct {
	Status     string `json:"status"`
	State      string `json:"state,omitempty"`
	Generation uint64 `json:"generation"`
	Routes     int    `json:"routes"`
	LastError  string `json:"lastError,omitempty"`
	Clients    int    `json:"clients"`
}

// NewStatusServer creates a status server.
func NewStatusServer(opts StatusOptions) *StatusServer {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "status")
	}

	s := &StatusServer{
		opts:        opts,
		logger:      opts.Logger,
		broadcaster: NewBroadcaster(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/routes", s.handleRoutes)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/events", s.broadcaster.HandleWebSocket)
	s.router = r

	return s
}

// Handler returns the HTTP handler.
func (s *StatusServer) Handler() http.Handler {
	return s.router
}

// Broadcaster returns the event broadcaster.
func (s *StatusServer) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Observe records a pass outcome and broadcasts it.
func (s *StatusServer) Observe(o pipeline.Outcome) {
	s.mu.Lock()
	s.last = &o
	if o.OK() && o.Table != nil {
		s.table = o.Table
	}
	s.mu.Unlock()

	s.broadcaster.Publish(EventFromOutcome(o))
}

// Serve serves on l until ctx is done.
func (s *StatusServer) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	s.logger.Info("status server listening", "addr", l.Addr().String())

	select {
	case <-ctx.Done():
		s.broadcaster.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.broadcaster.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ListenAndServe listens on the configured address and serves until ctx
// is done.
func (s *StatusServer) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := Health{Status: "starting", Clients: s.broadcaster.ClientCount()}
	if s.last != nil {
		h.Generation = s.last.Generation
		h.Status = "ok"
		if s.last.Err != nil {
			h.Status = "degraded"
			h.LastError = s.last.Err.Error()
		}
	}
	if s.table != nil {
		h.Routes = s.table.Len()
	}
	s.mu.RUnlock()

	if s.opts.Coordinator != nil {
		h.State = s.opts.Coordinator.State().String()
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *StatusServer) handleRoutes(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()

	if table == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no route table generated yet"})
		return
	}
	writeJSON(w, http.StatusOK, RoutesFromTable(table))
}

// RoutesFromTable converts a route table into its JSON form.
func RoutesFromTable(table *router.RouteTable) []RouteInfo {
	entries := table.Entries()
	routes := make([]RouteInfo, 0, len(entries))
	for _, e := range entries {
		info := RouteInfo{
			Pattern: e.Key(),
			Source:  e.Source,
			Params:  make([]ParamInfo, 0, len(e.Params)),
		}
		for _, p := range e.Params {
			info.Params = append(info.Params, ParamInfo{Name: p.Name, Kind: string(p.Kind)})
		}
		routes = append(routes, info)
	}
	return routes
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
