package http

import (
	"net/http"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Hint          string `json:"hint,omitempty"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ping(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	auth := s.svc.Auth
	resp := sessionResponse{Authenticated: auth.IsAuthenticated(r.Context())}
	if !resp.Authenticated {
		resp.Hint = auth.Hint()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := s.svc.Auth.Login(r.Context(), req.Username, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.Logout(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSession answers 401 until a login has been stored.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.svc.Auth.IsAuthenticated(r.Context()) {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
