package httpapi

import (
	"net/http"

	"authserver/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "required"
	}
	if req.Password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	account, token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.logAuthFailure(r, "login failed", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, loginResponse{
		Message: "login successful",
		Token:   token,
		Account: toAccountResponse(account),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *api) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentClaims(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	if len(req.NewPassword) < 8 {
		WriteDomainError(w, domain.NewValidationError(map[string]string{
			"new_password": "must be at least 8 characters",
		}))
		return
	}

	if err := a.auth.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		a.logAuthFailure(r, "password change failed", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (a *api) logAuthFailure(r *http.Request, msg string, err error) {
	fields := []any{"err", err}
	if rid, ok := GetRequestID(r.Context()); ok {
		fields = append(fields, "request_id", rid)
	}
	a.logger.Info(msg, fields...)
}
