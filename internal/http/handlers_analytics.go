package http

import (
	"net/http"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Analytics.Report(r.Context(), s.now()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Analytics.Dashboard(r.Context(), s.now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
