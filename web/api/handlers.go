package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/BugRescue/BugRescue/internal/report"
)

// statusResponse is the /api/status payload
type statusResponse struct {
	LatestRunID string `json:"latest_run_id,omitempty"`
	Root        string `json:"root,omitempty"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	Targets     int    `json:"targets"`
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.store.LatestRunID()
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, statusResponse{})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		summary, err := s.store.GetRun(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, statusResponse{
			LatestRunID: summary.ID,
			Root:        summary.Root,
			Passed:      summary.Passed(),
			Failed:      summary.Failed(),
			Targets:     len(summary.Targets),
		})
	}
}

func (s *Server) listRunsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		runs, err := s.store.ListRuns(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, runs)
	}
}

func (s *Server) getRunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if id == "" {
			writeError(w, http.StatusBadRequest, "run ID required")
			return
		}

		summary, err := s.store.GetRun(id)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, summary)
	}
}

// reportHandler re-renders the latest run's HTML report on the fly
func (s *Server) reportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("run")
		var err error
		if id == "" {
			id, err = s.store.LatestRunID()
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "no runs recorded")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		summary, err := s.store.GetRun(id)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		data, err := report.Render(summary)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}
}
