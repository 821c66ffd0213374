package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CarbonProof/Platform/internal/auth"
	"github.com/CarbonProof/Platform/internal/orchestrator"
	"github.com/CarbonProof/Platform/internal/store"
)

type Server struct {
	orch     *orchestrator.Orchestrator
	store    store.Store
	verifier *auth.Verifier
}

func New(orch *orchestrator.Orchestrator, st store.Store, verifier *auth.Verifier) *Server {
	return &Server{orch: orch, store: st, verifier: verifier}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/analysis", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.verifier))
			r.Post("/run", s.handleRun)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC(),
	}
	if err := s.store.Ping(ctx); err != nil {
		status["ok"] = false
		status["db"] = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

type runRequest struct {
	Datacenter string `json:"datacenter"`
	Period     string `json:"period"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Datacenter == "" || req.Period == "" {
		respondError(w, http.StatusBadRequest, "datacenter and period required")
		return
	}

	result, err := s.orch.Run(r.Context(), req.Datacenter, req.Period)
	if err != nil {
		var se *orchestrator.StageError
		if errors.As(err, &se) {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrFacilityNotFound) {
				status = http.StatusNotFound
			}
			respondJSON(w, status, map[string]interface{}{
				"error": se.Err.Error(),
				"jobId": se.JobID,
				"stage": se.Stage,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
