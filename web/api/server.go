// Package api serves run history and live rescue events over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/BugRescue/BugRescue/internal/domain"
	"github.com/BugRescue/BugRescue/internal/history"
	"github.com/BugRescue/BugRescue/internal/rescue"
)

// Store interface for run history operations
type Store interface {
	ListRuns(limit int) ([]history.RunRecord, error)
	GetRun(id string) (*domain.RunSummary, error)
	LatestRunID() (string, error)
}

// Server is the HTTP status server
type Server struct {
	store Store
	addr  string
	mux   *http.ServeMux
	hub   *EventHub
}

// NewServer creates a new status server
func NewServer(store Store, addr string) *Server {
	s := &Server{
		store: store,
		addr:  addr,
		mux:   http.NewServeMux(),
		hub:   NewEventHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/runs", s.listRunsHandler())
	s.mux.HandleFunc("/api/runs/", s.getRunHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/events/ws", s.wsHandler())
	s.mux.HandleFunc("/report", s.reportHandler())
}

// Handler returns the server's HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.hub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Publish forwards a rescue loop event to all connected clients
func (s *Server) Publish(e rescue.Event) {
	s.hub.Broadcast(Event{Type: "attempt", Data: e})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
