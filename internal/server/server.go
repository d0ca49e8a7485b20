// Package server exposes the lineage pipeline over HTTP for the
// interactive frontend: the resolved graph, filtered views, layouts, and
// an operator reload endpoint.
//
// The server holds the latest resolved graph in an atomic pointer and
// swaps it wholesale on reload, so requests always see a complete,
// consistent snapshot and never a half-rebuilt graph.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/observability"
	"github.com/lineamap/lineamap/pkg/pipeline"
	"github.com/lineamap/lineamap/pkg/store"
)

// snapshot is one immutable resolved-graph state. Requests read the
// current snapshot; Reload builds a new one and swaps the pointer.
type snapshot struct {
	Graph       *graph.Graph
	CorpusHash  string
	Resolution  graph.Resolution
	Report      graph.Report
	ScriptCount int
	LoadedAt    time.Time
}

// Server serves the lineage API.
type Server struct {
	runner *pipeline.Runner
	source pipeline.Options // load source only; query fields come per request
	logger *log.Logger

	// snapshots is optional; when set, reloads are persisted and startup
	// can restore the last stored graph before the first load completes.
	snapshots *store.Store
	namespace string

	current atomic.Pointer[snapshot]
}

// Config bundles the server dependencies.
type Config struct {
	Runner    *pipeline.Runner
	Source    pipeline.Options // Manifest or Dir set; filters ignored
	Logger    *log.Logger
	Snapshots *store.Store // optional
	Namespace string       // snapshot namespace, defaults to "default"
}

// New creates a Server. No graph is loaded yet; call [Server.Reload] or
// [Server.Restore] before serving traffic, or let the first request hit
// the 503 from the readiness check.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	return &Server{
		runner:    cfg.Runner,
		source:    cfg.Source,
		logger:    cfg.Logger,
		snapshots: cfg.Snapshots,
		namespace: cfg.Namespace,
	}
}

// Reload runs the pipeline against the configured source and swaps in the
// new graph. The previous snapshot stays visible until the swap.
func (s *Server) Reload(ctx context.Context) error {
	opts := s.source
	opts.SkipLayout = true
	opts.Refresh = true

	reloadStart := time.Now()
	result, err := s.runner.Execute(ctx, opts)
	if err != nil {
		observability.Server().OnReload(ctx, 0, time.Since(reloadStart), err)
		return fmt.Errorf("reload: %w", err)
	}
	observability.Server().OnReload(ctx, result.Graph.NodeCount(), time.Since(reloadStart), nil)

	snap := &snapshot{
		Graph:       result.Graph,
		CorpusHash:  result.CorpusHash,
		Resolution:  result.Resolution,
		Report:      result.Report,
		ScriptCount: result.Stats.ScriptCount,
		LoadedAt:    time.Now().UTC(),
	}
	s.current.Store(snap)

	s.logger.Info("graph reloaded",
		"scripts", snap.ScriptCount,
		"nodes", snap.Graph.NodeCount(),
		"edges", snap.Graph.EdgeCount(),
		"violations", snap.Resolution.Violations())

	if s.snapshots != nil {
		if _, err := s.snapshots.Save(ctx, s.namespace, snap.Graph, snap.ScriptCount); err != nil {
			// Persistence is best effort; the in-memory graph is already live.
			s.logger.Warn("snapshot save failed", "err", err)
		}
	}
	return nil
}

// Restore loads the latest stored snapshot into memory, for fast startup
// before the first full reload. Returns store.ErrNoSnapshot when the
// namespace is empty.
func (s *Server) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	stored, err := s.snapshots.Latest(ctx, s.namespace)
	if err != nil {
		return err
	}
	g, err := graph.FromDocument(stored.Graph)
	if err != nil {
		return fmt.Errorf("restore snapshot %s: %w", stored.ID, err)
	}

	s.current.Store(&snapshot{
		Graph:       g,
		Report:      graph.Validate(g),
		ScriptCount: stored.ScriptCount,
		LoadedAt:    stored.CreatedAt,
	})
	s.logger.Info("graph restored from snapshot",
		"snapshot", stored.ID,
		"nodes", g.NodeCount(),
		"created_at", stored.CreatedAt)
	return nil
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/scripts", s.handleScripts)
		r.Get("/tables", s.handleTables)
		r.Get("/query", s.handleQuery)
		r.Get("/layout", s.handleLayout)
		r.Get("/validate", s.handleValidate)
		r.Post("/reload", s.handleReload)
	})

	return r
}

// logRequests logs one line per request with the chi request ID.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		observability.Server().OnRequest(req.Context(), req.Method, req.URL.Path, ww.Status(), time.Since(start))
		s.logger.Debug("request",
			"id", chimw.GetReqID(req.Context()),
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
