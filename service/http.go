package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/khaller93/es-middleware-sub003/access"
	"github.com/khaller93/es-middleware-sub003/analytics"
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/fulltext"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
	"github.com/khaller93/es-middleware-sub003/synchronizer"
)

const (
	maxBodySize     = 8 << 20
	defaultWaitTime = 30 * time.Second
	defaultLimit    = 10
	maxLimit        = 1000
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Runtime     Info                            `json:"runtime"`
	DAOs        map[status.DAO]status.DAOStatus `json:"daos"`
	NeedsResync bool                            `json:"needs_resync"`
	Halted      string                          `json:"halted,omitempty"`
	Tasks       []synchronizer.SyncTask         `json:"tasks"`
	History     []synchronizer.SyncTask         `json:"history"`
	PageRank    *analytics.RunStats             `json:"pagerank,omitempty"`
}

// WriteResponse is the body of a triple write.
type WriteResponse struct {
	CorrelationID uint64                  `json:"correlation_id"`
	Added         int                     `json:"added"`
	Removed       int                     `json:"removed"`
	Graph         *status.TransitionEvent `json:"graph,omitempty"`
}

// VertexResponse is the body of GET /graph/vertex?id=.
type VertexResponse struct {
	Vertex   pgraph.Vertex `json:"vertex"`
	Out      []pgraph.Edge `json:"out"`
	In       []pgraph.Edge `json:"in"`
	PageRank *float64      `json:"pagerank,omitempty"`
}

// Handler returns the HTTP surface of the runtime.
func (r *Runtime) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", r.handleLiveness)
	mux.HandleFunc("GET /readyz", r.handleReadiness)
	mux.HandleFunc("GET /health", r.handleHealth)
	mux.HandleFunc("GET /status", r.handleStatus)
	mux.Handle("GET /metrics", r.registry.Handler())

	mux.HandleFunc("POST /triples", r.handleWrite(false))
	mux.HandleFunc("DELETE /triples", r.handleWrite(true))
	mux.HandleFunc("GET /triples", r.handleExport)
	mux.HandleFunc("POST /sync", r.handleResync)

	mux.HandleFunc("GET /graph/vertex", r.handleVertex)
	mux.HandleFunc("GET /search", r.handleSearch)
	return mux
}

func (r *Runtime) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (r *Runtime) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if r.Health().IsHealthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("NOT READY"))
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := r.Health()
	code := http.StatusOK
	if h.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	r.writeJSON(w, code, h)
}

func (r *Runtime) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Runtime:     r.Info(),
		DAOs:        r.tracker.Snapshot(),
		NeedsResync: r.engine.NeedsResync(),
		Tasks:       r.engine.Tasks(),
		History:     r.engine.History(),
	}
	if err := r.coord.Halted(); err != nil {
		resp.Halted = err.Error()
	}
	if r.job != nil {
		if last, ok := r.job.LastRun(); ok {
			resp.PageRank = &last
		}
	}
	r.writeJSON(w, http.StatusOK, resp)
}

// handleWrite applies an N-Triples body to the primary store. With
// ?wait=true the response is sent once the derived graph has applied the
// write.
func (r *Runtime) handleWrite(remove bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		triples, err := rdf.DecodeAll(io.LimitReader(req.Body, maxBodySize))
		if err != nil {
			r.writeError(w, errors.WrapInvalid(err, "Runtime", "handleWrite", "decode N-Triples body"))
			return
		}

		var added, removed []rdf.Triple
		if remove {
			removed = triples
		} else {
			added = triples
		}
		delta, err := r.store.Apply(req.Context(), added, removed)
		if err != nil {
			r.writeError(w, err)
			return
		}

		resp := WriteResponse{
			CorrelationID: delta.CorrelationID,
			Added:         len(delta.Added),
			Removed:       len(delta.Removed),
		}
		if !delta.Empty() && req.URL.Query().Get("wait") == "true" {
			ctx, cancel := context.WithTimeout(req.Context(), defaultWaitTime)
			defer cancel()
			ev, err := r.bus.WaitFor(ctx, status.Graph, delta.CorrelationID, status.Ready, status.Degraded, status.Failed)
			if err != nil {
				r.writeError(w, err)
				return
			}
			resp.Graph = &ev
		}
		r.writeJSON(w, http.StatusOK, resp)
	}
}

func (r *Runtime) handleExport(w http.ResponseWriter, req *http.Request) {
	if err := r.gate.Check(status.Primary); err != nil {
		r.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/n-triples")
	if err := r.store.Export(req.Context(), w); err != nil {
		r.logger.Error("Failed to export primary store", "error", err)
	}
}

func (r *Runtime) handleResync(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.Resync(req.Context()); err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, map[string]any{
		"status":  r.tracker.CurrentStatus(status.Graph),
		"history": r.engine.History(),
	})
}

// handleVertex reads one vertex without taking the coordinator lock; a
// synchronizing graph may return a vertex that a pass is about to change.
func (r *Runtime) handleVertex(w http.ResponseWriter, req *http.Request) {
	id := req.URL.Query().Get("id")
	resp, err := access.Serve(req.Context(), r.gate, status.Graph, func(ctx context.Context) (*VertexResponse, error) {
		g := r.graph.Graph()
		v, ok := g.Vertex(id)
		if !ok {
			return nil, nil
		}
		resp := &VertexResponse{
			Vertex: v,
			Out:    g.Edges(id, pgraph.Outgoing),
			In:     g.Edges(id, pgraph.Incoming),
		}
		if r.job != nil {
			if score, ok, err := r.job.Score(ctx, id); err == nil && ok {
				resp.PageRank = &score
			}
		}
		return resp, nil
	})
	switch {
	case err != nil:
		r.writeError(w, err)
	case resp == nil:
		r.writeJSON(w, http.StatusNotFound, map[string]string{"error": "vertex not found"})
	default:
		r.writeJSON(w, http.StatusOK, resp)
	}
}

func (r *Runtime) handleSearch(w http.ResponseWriter, req *http.Request) {
	if r.updater == nil {
		r.writeJSON(w, http.StatusNotFound, map[string]string{"error": "full-text index disabled"})
		return
	}
	query := req.URL.Query().Get("q")
	limit := defaultLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			r.writeError(w, errors.WrapInvalid(fmt.Errorf("invalid limit %q", raw), "Runtime", "handleSearch", "parse limit"))
			return
		}
		limit = min(n, maxLimit)
	}

	hits, err := access.Serve(req.Context(), r.gate, status.FullText, func(context.Context) ([]fulltext.Hit, error) {
		return r.updater.Index().Search(query, limit), nil
	})
	if err != nil {
		r.writeError(w, err)
		return
	}
	if hits == nil {
		hits = []fulltext.Hit{}
	}
	r.writeJSON(w, http.StatusOK, map[string]any{"query": query, "hits": hits})
}

func (r *Runtime) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps error classes to status codes: stale DAOs and transient
// failures are 503, invalid input 400, everything else 500.
func (r *Runtime) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var stale *errors.StaleError
	switch {
	case stderrors.As(err, &stale):
		code = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	case errors.IsInvalid(err):
		code = http.StatusBadRequest
	case errors.IsTransient(err):
		code = http.StatusServiceUnavailable
	default:
		r.logger.Error("Request failed", "error", err)
	}
	r.writeJSON(w, code, map[string]string{"error": err.Error()})
}
