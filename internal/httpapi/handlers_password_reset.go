package httpapi

import (
	"net/http"

	"authserver/internal/domain"
)

type resetRequestBody struct {
	Email string `json:"email"`
}

// handleResetRequest answers 204 regardless of whether the email maps to
// an account, so the endpoint cannot be used to enumerate users.
func (a *api) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	if req.Email == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required"}))
		return
	}

	if err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		a.logger.Error("password reset request failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type resetSubmitBody struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *api) handleResetSubmit(w http.ResponseWriter, r *http.Request) {
	var req resetSubmitBody
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	fields := map[string]string{}
	if req.Token == "" {
		fields["token"] = "required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	if err := a.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
