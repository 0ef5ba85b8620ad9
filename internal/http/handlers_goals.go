package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/services"
)

type createGoalRequest struct {
	Title         string          `json:"title"`
	TargetAmount  amount          `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      string          `json:"deadline"`
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
}

type updateGoalRequest struct {
	Title        *string `json:"title"`
	TargetAmount *amount `json:"targetAmount"`
	Deadline     *string `json:"deadline"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
}

type contributionRequest struct {
	Amount amount `json:"amount"`
}

// goalResponse adds the derived progress ratio to a stored goal.
type goalResponse struct {
	core.SavingsGoal
	Progress float64 `json:"progress"`
}

func toGoalResponse(g core.SavingsGoal) goalResponse {
	return goalResponse{SavingsGoal: g, Progress: g.Progress()}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals := s.svc.Goals.List(r.Context())
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	g, err := s.svc.Goals.Add(r.Context(), services.NewGoal{
		Title:         sanitizeInput(req.Title),
		TargetAmount:  req.TargetAmount.Decimal,
		CurrentAmount: req.CurrentAmount,
		Deadline:      sanitizeInput(req.Deadline),
		Icon:          sanitizeInput(req.Icon),
		Color:         sanitizeInput(req.Color),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalResponse(g))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	p := core.GoalPatch{
		Title:    req.Title,
		Deadline: req.Deadline,
		Icon:     req.Icon,
		Color:    req.Color,
	}
	if req.TargetAmount != nil {
		p.TargetAmount = &req.TargetAmount.Decimal
	}

	g, err := s.svc.Goals.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(g))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Goals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	g, err := s.svc.Goals.Contribute(r.Context(), chi.URLParam(r, "id"), req.Amount.Decimal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(g))
}
