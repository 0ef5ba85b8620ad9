package http

import (
	"net/http"

	"gastos/internal/budget"
)

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Budget.Status(r.Context(), s.now()))
}

// handleUpdateBudgetSettings stores the limit and threshold as given; out of
// range values are kept and the budget math copes with them.
func (s *Server) handleUpdateBudgetSettings(w http.ResponseWriter, r *http.Request) {
	var p budget.SettingsPatch
	if err := decodeJSON(w, r, &p); err != nil {
		handleServiceError(w, r, err)
		return
	}

	settings, err := s.svc.Budget.UpdateSettings(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateReminders(w http.ResponseWriter, r *http.Request) {
	var p budget.RemindersPatch
	if err := decodeJSON(w, r, &p); err != nil {
		handleServiceError(w, r, err)
		return
	}

	settings, err := s.svc.Budget.UpdateReminders(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleDueReminders(w http.ResponseWriter, r *http.Request) {
	due := s.svc.Budget.DueReminders(r.Context(), s.now())
	if due == nil {
		due = []budget.Reminder{}
	}
	writeJSON(w, http.StatusOK, due)
}
