package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"spycats/pkg/domain"
)

type apiError struct {
	Code       string             `json:"code"`
	Field      string             `json:"field,omitempty"`
	Message    string             `json:"message"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// classify maps an error to a status and response body.
func classify(err error) (int, apiError) {
	var (
		rv domain.RuleViolationError
		de *domain.Error
	)
	switch {
	case errors.As(err, &rv):
		return http.StatusConflict, apiError{Code: "rule_violation", Message: err.Error(), Violations: rv.Result.Violations}
	case domain.IsNotFound(err, ""):
		return http.StatusNotFound, apiError{Code: "not_found", Message: err.Error()}
	case errors.As(err, &de):
		status := http.StatusBadRequest
		if de.Kind == domain.ErrorKindExternalService {
			status = http.StatusBadGateway
		}
		msg := de.Message
		if msg == "" {
			msg = string(de.Kind)
		}
		return status, apiError{Code: string(de.Kind), Field: de.Field, Message: msg}
	default:
		return http.StatusInternalServerError, apiError{Code: "internal", Message: "internal server error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, body apiError) {
	writeJSON(w, status, map[string]any{"error": body})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, apiError{Code: "not_found", Message: "resource not found"})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, apiError{Code: "method_not_allowed", Message: "method not allowed"})
}
