package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"authserver/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps the error taxonomy to HTTP statuses. Internal
// error text never reaches the client.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusBadRequest, "invalid_credentials", "invalid email or password")
	case errors.Is(err, domain.ErrResetTokenInvalid):
		WriteError(w, http.StatusBadRequest, "reset_token_invalid", "reset token is invalid or expired")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrTokenExpired):
		WriteError(w, http.StatusUnauthorized, "token_expired", "token expired")
	case errors.Is(err, domain.ErrTokenInvalid):
		WriteError(w, http.StatusUnauthorized, "token_invalid", "invalid token")
	case errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, "username_taken", "username already taken")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "email already taken")
	case errors.Is(err, domain.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "resource already exists")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
