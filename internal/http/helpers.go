package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

// errBadRequest marks malformed request bodies and query values.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrMovementNotFound),
		errors.Is(err, core.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyTitle):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, applog.ComponentHTTP, operationFor(r.Method),
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func operationFor(method string) string {
	switch method {
	case http.MethodPost:
		return applog.OpCreate
	case http.MethodPatch, http.MethodPut:
		return applog.OpUpdate
	case http.MethodDelete:
		return applog.OpDelete
	default:
		return applog.OpRead
	}
}

// amount is a money value as typed by the user. Strings go through
// core.ParseAmount so "12,50" is accepted; numbers must be positive too.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// queryLimit reads a positive integer query parameter; absent means 0.
func queryLimit(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
