package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	applog "gastos/internal/log"
	"gastos/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials is the single account allowed in.
type Credentials struct {
	Username string
	Password string
	Hint     string
}

// AuthService is a local gate, not an identity system: one static account and
// a persisted "logged in" flag.
type AuthService struct {
	sessions *storage.SessionRepository
	creds    Credentials
}

func NewAuthService(sessions *storage.SessionRepository, creds Credentials) *AuthService {
	return &AuthService{sessions: sessions, creds: creds}
}

// Login checks the trimmed username and the exact password.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.creds.Password)) == 1
	if !userOK || !passOK {
		slog.WarnContext(ctx, "Login rejected",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldOperation, applog.OpLogin)
		return ErrInvalidCredentials
	}

	if err := s.sessions.SetAuthenticated(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Login accepted",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldOperation, applog.OpLogin)
	return nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Logged out",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldOperation, applog.OpLogout)
	return nil
}

func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	return s.sessions.IsAuthenticated(ctx)
}

// Hint is shown on the login screen; empty unless configured.
func (s *AuthService) Hint() string {
	return s.creds.Hint
}
