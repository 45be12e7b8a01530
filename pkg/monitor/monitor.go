// Package monitor implements the Monitor Service: a small HTTP projection
// of the Evidence DB. It never decides anything — every response is read
// straight off the store, and POST /api/verdict is an idempotent upsert.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/api"
	"github.com/Mindburn-Labs/verigate/pkg/store/evidence"
	"github.com/Mindburn-Labs/verigate/pkg/task"
)

// Service wires the Evidence DB to an http.Handler.
type Service struct {
	Store evidence.Store
}

// NewHandler builds the Monitor Service's routes using an in-memory
// idempotency store for POST /api/verdict. Use NewHandlerWithIdempotency to
// supply a durable backend in a multi-instance deployment.
func NewHandler(store evidence.Store) http.Handler {
	return NewHandlerWithIdempotency(store, api.NewIdempotencyStore(10*time.Minute))
}

// NewHandlerWithIdempotency builds the Monitor Service's routes. POST
// /api/verdict is wrapped with idempotency replay — an Orchestrator or
// Pusher that retries a push after a dropped response gets back the same
// 204 rather than a second write attempt — and every route sits behind a
// per-IP rate limiter, since this endpoint is reachable from any
// adapter-runtime host that can reach the Monitor.
func NewHandlerWithIdempotency(store evidence.Store, idempotency api.IdempotencyStorer) http.Handler {
	s := &Service{Store: store}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /api/verdict", api.IdempotencyMiddleware(idempotency)(http.HandlerFunc(s.handlePostVerdict)))
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /api/tasks/{id}/units", s.handleListUnits)
	mux.HandleFunc("GET /api/stats/units/types", s.handleTypeHistogram)
	mux.HandleFunc("GET /api/stats/daily", s.handleDailyAggregates)

	limiter := api.NewGlobalRateLimiter(50, 100)
	return limiter.Middleware(mux)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handlePostVerdict accepts a decided Verdict and upserts it into the
// Evidence DB. It is not authoritative — the Orchestrator already decided
// this Verdict; this endpoint only persists the projection.
func (s *Service) handlePostVerdict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var v task.Verdict
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		api.WriteBadRequest(w, "invalid verdict body")
		return
	}
	if v.TaskID == "" {
		api.WriteBadRequest(w, "missing task_id")
		return
	}

	if err := s.Store.UpsertVerdict(r.Context(), &v); err != nil {
		api.WriteInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Store.ListTasks(r.Context(), 0)
	if err != nil {
		api.WriteInternal(w, err)
		return
	}
	writeJSON(w, tasks)
}

func (s *Service) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	summary, err := s.Store.GetTask(r.Context(), id)
	if err != nil || summary == nil {
		api.WriteNotFound(w, "task not found")
		return
	}
	writeJSON(w, summary)
}

func (s *Service) handleListUnits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	units, err := s.Store.ListUnits(r.Context(), id)
	if err != nil {
		api.WriteInternal(w, err)
		return
	}
	writeJSON(w, units)
}

func (s *Service) handleTypeHistogram(w http.ResponseWriter, r *http.Request) {
	counts, err := s.Store.TypeHistogram(r.Context())
	if err != nil {
		api.WriteInternal(w, err)
		return
	}
	writeJSON(w, counts)
}

func (s *Service) handleDailyAggregates(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			days = n
		}
	}
	counts, err := s.Store.DailyAggregates(r.Context(), days)
	if err != nil {
		api.WriteInternal(w, err)
		return
	}
	writeJSON(w, counts)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Push implements orchestrator.Pusher: a best-effort local push that writes
// straight to the same Evidence DB the HTTP handler reads from, for
// single-process deployments that skip the network hop entirely.
func (s *Service) Push(ctx context.Context, v *task.Verdict) error {
	return s.Store.UpsertVerdict(ctx, v)
}
