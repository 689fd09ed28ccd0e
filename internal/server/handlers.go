package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dyike/ValueArena/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": service.Version,
		"service": "valuearena",
	})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.SystemInfo())
}

// handlePortfolios lists every ledger, or one when ?id= is given.
func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		s.handlePortfolio(w, r)
		return
	}
	ledgers, err := s.backend.Portfolios(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ledgers)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "bad request", "id is required")
		return
	}
	l, err := s.backend.Portfolio(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, l)
}

// handleRunDaily runs a full cycle. Repeated ?agent= narrows the roster.
func (s *Server) handleRunDaily(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["agent"]
	s.log.Info().Strs("agents", ids).Msg("daily cycle triggered over http")

	// the cycle outlives a dropped connection
	results, err := s.backend.RunDaily(context.WithoutCancel(r.Context()), ids...)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "complete",
		"results": results,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.backend.Leaderboard(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.HistoryParams{ID: q.Get("id"), Cursor: q.Get("cursor")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "bad request", "limit must be an integer")
			return
		}
		params.Limit = limit
	}

	page, err := s.backend.TradeHistory(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, map[string]string{
		"error":   kind,
		"message": message,
	})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownAgent):
		s.writeError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, service.ErrUnknownCursor):
		s.writeError(w, http.StatusBadRequest, "bad request", err.Error())
	case errors.Is(err, service.ErrCycleRunning):
		s.writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		s.writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
