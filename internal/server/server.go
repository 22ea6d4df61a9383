// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/agentberlin/linkwalk/internal/app"
	"github.com/agentberlin/linkwalk/internal/sites"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/agentberlin/linkwalk/internal/version"
)

// maxBatch bounds the URLs accepted by one batch request
const maxBatch = 100

// Server exposes the application as a JSON API
type Server struct {
	app    *app.App
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(app *app.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		app:    app,
		mux:    http.NewServeMux(),
		logger: logger,
	}

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/version", s.handleGetVersion)
	s.mux.HandleFunc("/api/v1/sites", s.handleSites)
	s.mux.HandleFunc("/api/v1/resolve", s.handleResolve)
	s.mux.HandleFunc("/api/v1/batch", s.handleBatch)
	s.mux.HandleFunc("/api/v1/active-runs", s.handleActiveRuns)
	s.mux.HandleFunc("/api/v1/stop-run/", s.handleStopRun)
	s.mux.HandleFunc("/api/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/api/v1/runs/", s.handleRunWithID)
	s.mux.HandleFunc("/api/v1/stats", s.handleStats)
}

// resolveRequest is the body of POST /api/v1/resolve and /api/v1/batch
type resolveRequest struct {
	URL         string   `json:"url"`
	URLs        []string `json:"urls"`
	Parallelism int      `json:"parallelism"`
	MaxSteps    int      `json:"maxSteps"`
	Render      bool     `json:"render"`
}

func (r *resolveRequest) options() *linkwalk.Options {
	if r.MaxSteps <= 0 && !r.Render {
		return nil
	}
	return &linkwalk.Options{MaxSteps: r.MaxSteps, RenderNavigation: r.Render}
}

// handleHealth reports the renderer health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.app.CheckSystemHealth()
	status := http.StatusOK
	if !health.IsHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// handleGetVersion returns the application version
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": version.CurrentVersion})
}

// handleSites handles GET /api/v1/sites
func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Sites())
}

// handleResolve handles POST /api/v1/resolve. The response is sent once the
// run has finished.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	detail, err := s.app.Resolve(r.Context(), req.URL, req.options())
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, app.ErrNoRenderer) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleBatch handles POST /api/v1/batch
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.URLs) == 0 {
		http.Error(w, "urls required", http.StatusBadRequest)
		return
	}
	if len(req.URLs) > maxBatch {
		http.Error(w, "too many urls, at most "+strconv.Itoa(maxBatch), http.StatusRequestEntityTooLarge)
		return
	}

	details := s.app.ResolveAll(r.Context(), req.URLs, req.Parallelism, req.options())
	writeJSON(w, http.StatusOK, details)
}

// handleActiveRuns handles GET /api/v1/active-runs
func (s *Server) handleActiveRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.app.GetActiveRuns())
}

// handleStopRun handles POST /api/v1/stop-run/{id}
func (s *Server) handleStopRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/stop-run/")
	if id == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}
	if err := s.app.StopRun(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Run stopped"})
}

// handleRuns handles GET /api/v1/runs?limit=20&site=&outcome=&q=
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{
		Limit:   20,
		Site:    q.Get("site"),
		Outcome: q.Get("outcome"),
		Query:   q.Get("q"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	runs, err := s.app.ListRuns(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunWithID handles /api/v1/runs/{id} and /api/v1/runs/{id}/groups
func (s *Server) handleRunWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	// DELETE /api/v1/runs/{id}
	if len(parts) == 1 && r.Method == http.MethodDelete {
		if err := s.app.DeleteRun(id); err != nil {
			http.Error(w, err.Error(), runErrorStatus(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	detail, err := s.app.GetRun(id)
	if err != nil {
		http.Error(w, err.Error(), runErrorStatus(err))
		return
	}

	switch {
	// GET /api/v1/runs/{id}
	case len(parts) == 1:
		writeJSON(w, http.StatusOK, detail)
	// GET /api/v1/runs/{id}/groups?quality=1080p
	case len(parts) == 2 && parts[1] == "groups":
		groups := app.GroupByQuality(detail.Links)
		if q := r.URL.Query().Get("quality"); q != "" {
			if !sites.IsQuality(q) {
				http.Error(w, "Unknown quality "+q, http.StatusBadRequest)
				return
			}
			filtered := groups[:0]
			for _, g := range groups {
				if strings.EqualFold(g.Quality, q) {
					filtered = append(filtered, g)
				}
			}
			groups = filtered
		}
		writeJSON(w, http.StatusOK, groups)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleStats handles GET /api/v1/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.app.GetStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAmbiguousID):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
