package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/analytics"
	"gastos/internal/core"
	"gastos/internal/services"
)

type createMovementRequest struct {
	Amount      amount            `json:"amount"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Type        core.MovementType `json:"type"`
}

type movementListResponse struct {
	Movements []core.Movement        `json:"movements"`
	Counts    analytics.FilterCounts `json:"counts"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	t := core.MovementType(r.URL.Query().Get("type"))
	if t != "" && !t.IsValid() {
		writeError(w, http.StatusBadRequest, "type must be income or expense")
		return
	}
	writeJSON(w, http.StatusOK, core.CategoriesFor(t))
}

// handleListMovements filters by type and search text; limit keeps the first
// N matches, newest first.
func (s *Server) handleListMovements(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, "limit")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	all := s.svc.Movements.List(r.Context())
	q := r.URL.Query()
	filtered := analytics.FilterMovements(all, analytics.ParseTypeFilter(q.Get("type")), q.Get("q"))
	if limit > 0 {
		filtered = analytics.Recent(filtered, limit)
	}

	writeJSON(w, http.StatusOK, movementListResponse{
		Movements: filtered,
		Counts:    analytics.CountByType(all),
	})
}

func (s *Server) handleCreateMovement(w http.ResponseWriter, r *http.Request) {
	var req createMovementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	m, err := s.svc.Movements.Record(r.Context(), services.NewMovement{
		Amount:      req.Amount.Decimal,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Type:        req.Type,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Movements.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearMovements(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Movements.Clear(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMovementsByMonth groups in the server's local zone, the same zone the
// budget month is computed in.
func (s *Server) handleMovementsByMonth(w http.ResponseWriter, r *http.Request) {
	groups := analytics.GroupByMonth(s.svc.Movements.List(r.Context()), time.Local)
	writeJSON(w, http.StatusOK, groups)
}
