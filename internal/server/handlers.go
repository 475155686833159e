package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/examforge/internal/storage"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"catalog": s.catalog.Status()}
	if du, err := storage.OutputDiskUsage(s.layout); err == nil {
		resp["disk_usage"] = du
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	if s.ledger != nil {
		totals, err := s.ledger.AllTimeTotals(r.Context())
		if err != nil {
			s.logger.Error("status: ledger totals failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["usage"] = totals
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	f := Filter{
		Chapter:    strings.TrimSpace(r.URL.Query().Get("chapter")),
		Difficulty: strings.TrimSpace(r.URL.Query().Get("difficulty")),
	}
	qs := s.catalog.Questions(f)
	s.respondJSON(w, http.StatusOK, map[string]any{"total": len(qs), "questions": qs})
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q, ok := s.catalog.Question(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "question not found")
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}
	fuzziness := 0
	if v := r.URL.Query().Get("fuzzy"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 2 {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be 0, 1 or 2")
			return
		}
		fuzziness = n
	}
	s.logger.Debug("search request", zap.String("query", query), zap.Int("limit", limit))
	hits, err := s.catalog.Search(query, limit, fuzziness)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": query, "results": hits})
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	failures := s.catalog.Failures()
	s.respondJSON(w, http.StatusOK, map[string]any{"total": len(failures), "failures": failures})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
