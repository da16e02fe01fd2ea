package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cwygoda/coursedl/internal/domain"
)

// ProgressReader is the read side of domain.ProgressTracker.
type ProgressReader interface {
	Counts() (done, pending int)
	Current() string
	Snapshot() domain.Snapshot
}

// Server is the read-only status endpoint of a running download.
type Server struct {
	progress ProgressReader
	mux      *http.ServeMux
	server   *http.Server
	started  time.Time
}

// NewServer creates a new HTTP server.
func NewServer(progress ProgressReader, addr string) *Server {
	s := &Server{
		progress: progress,
		mux:      http.NewServeMux(),
		started:  time.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /progress", s.handleProgress)
	s.mux.HandleFunc("GET /progress/{state}", s.handleEntries)
}

// progressResponse is the JSON response for GET /progress.
type progressResponse struct {
	Done    int    `json:"done"`
	Pending int    `json:"pending"`
	Current string `json:"current,omitempty"`
	Uptime  string `json:"uptime"`
}

// entriesResponse is the JSON response for GET /progress/{state}.
type entriesResponse struct {
	State   string   `json:"state"`
	Entries []string `json:"entries"`
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	done, pending := s.progress.Counts()
	s.writeJSON(w, http.StatusOK, progressResponse{
		Done:    done,
		Pending: pending,
		Current: s.progress.Current(),
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
	})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	state := r.PathValue("state")
	snap := s.progress.Snapshot()

	var entries []string
	switch state {
	case "done":
		entries = snap.Done
	case "pending":
		entries = snap.Pending
	default:
		s.writeError(w, http.StatusNotFound, "state must be done or pending")
		return
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n < len(entries) {
			entries = entries[:n]
		}
	}
	if entries == nil {
		entries = []string{}
	}

	s.writeJSON(w, http.StatusOK, entriesResponse{State: state, Entries: entries})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.server.Addr
}
