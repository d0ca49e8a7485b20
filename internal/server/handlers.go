package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/layout"
)

// graphResponse is the wire form of a graph view plus its metadata.
type graphResponse struct {
	Graph       graph.Document `json:"graph"`
	ScriptCount int            `json:"script_count"`
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	LoadedAt    time.Time      `json:"loaded_at"`
}

type layoutResponse struct {
	Placements map[string]layout.Placement `json:"placements"`
	NodeCount  int                         `json:"node_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	if s.current.Load() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGraph(w http.ResponseWriter, req *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{
		Graph:       graph.ToDocument(snap.Graph),
		ScriptCount: snap.ScriptCount,
		NodeCount:   snap.Graph.NodeCount(),
		EdgeCount:   snap.Graph.EdgeCount(),
		LoadedAt:    snap.LoadedAt,
	})
}

func (s *Server) handleScripts(w http.ResponseWriter, req *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"scripts": snap.Graph.Scripts()})
}

func (s *Server) handleTables(w http.ResponseWriter, req *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tables": snap.Graph.TableNames()})
}

func (s *Server) handleQuery(w http.ResponseWriter, req *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	sub, err := s.subgraph(snap, req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{
		Graph:       graph.ToDocument(sub),
		ScriptCount: snap.ScriptCount,
		NodeCount:   sub.NodeCount(),
		EdgeCount:   sub.EdgeCount(),
		LoadedAt:    snap.LoadedAt,
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, req *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	sub, err := s.subgraph(snap, req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	placements := layout.Build(sub)
	writeJSON(w, http.StatusOK, layoutResponse{
		Placements: placements,
		NodeCount:  sub.NodeCount(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, req *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":     snap.Report,
		"resolution": snap.Resolution,
		"clean":      snap.Report.Clean(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, req *http.Request) {
	if err := s.Reload(req.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	snap := s.current.Load()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"nodes":     snap.Graph.NodeCount(),
		"edges":     snap.Graph.EdgeCount(),
		"loaded_at": snap.LoadedAt,
	})
}

// snapshot returns the current graph snapshot, writing a 503 when no load
// has completed yet.
func (s *Server) snapshot(w http.ResponseWriter) (*snapshot, bool) {
	snap := s.current.Load()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "graph not loaded yet"})
		return nil, false
	}
	return snap, true
}

// subgraph applies the request's query parameters to the snapshot graph.
// Parameters: scripts and tables are comma-separated lists, mode is one of
// the traversal modes (default direct).
func (s *Server) subgraph(snap *snapshot, req *http.Request) (*graph.Graph, error) {
	q := req.URL.Query()
	scripts := splitParam(q.Get("scripts"))
	tables := splitParam(q.Get("tables"))

	mode, err := graph.ParseMode(q.Get("mode"))
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 && len(tables) == 0 {
		return snap.Graph, nil
	}
	return snap.Graph.Query(scripts, tables, mode), nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
