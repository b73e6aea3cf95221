package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"authserver/internal/domain"
)

type accountResponse struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	RoleID            int64     `json:"role_id"`
	RoleName          string    `json:"role_name"`
	CreatedAt         time.Time `json:"created_at"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
}

func toAccountResponse(a domain.Account) accountResponse {
	return accountResponse{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		RoleID:            a.RoleID,
		RoleName:          a.RoleName,
		CreatedAt:         a.CreatedAt,
		ProfilePictureURL: a.ProfilePictureURL,
	}
}

type createAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   int64  `json:"role_id,omitempty"`
}

func (a *api) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	account, err := a.accounts.Create(r.Context(), req.Username, req.Email, req.Password, req.RoleID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "account created",
		"account": toAccountResponse(account),
	})
}

func (a *api) handleAccountMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentClaims(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	account, err := a.accounts.GetByID(r.Context(), claims.AccountID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"account": toAccountResponse(account)})
}

func (a *api) handleAccountByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "must be a positive integer"}))
		return
	}

	account, err := a.accounts.GetByID(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"account": toAccountResponse(account)})
}

func (a *api) handleAccountByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"username": "required"}))
		return
	}

	account, err := a.accounts.GetByUsername(r.Context(), username)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"account": toAccountResponse(account)})
}

type updateAccountRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (a *api) handleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentClaims(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	account, err := a.accounts.UpdateDetails(r.Context(), claims.AccountID, domain.AccountUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"account": toAccountResponse(account)})
}

func (a *api) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentClaims(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.accounts.Delete(r.Context(), claims.AccountID); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "account deleted",
		"account_id": claims.AccountID,
	})
}

type putPictureRequest struct {
	Filename  string `json:"filename"`
	Filesize  int64  `json:"filesize"`
	MediaType string `json:"media_type,omitempty"`
}

type pictureResponse struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Filename  string    `json:"filename"`
	Filesize  int64     `json:"filesize"`
	MediaType string    `json:"media_type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func toPictureResponse(p domain.ProfilePicture) pictureResponse {
	return pictureResponse{
		ID:        p.ID,
		AccountID: p.AccountID,
		Filename:  p.Filename,
		Filesize:  p.Filesize,
		MediaType: p.MediaType,
		URL:       p.URL,
		CreatedAt: p.CreatedAt,
	}
}

func (a *api) handleProfilePicturePut(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentClaims(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req putPictureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	pic, err := a.accounts.PutProfilePicture(r.Context(), claims.AccountID, req.Filename, req.Filesize, req.MediaType)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "profile picture updated",
		"picture": toPictureResponse(pic),
	})
}

func (a *api) handleProfilePictureGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentClaims(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	pic, err := a.accounts.GetProfilePicture(r.Context(), claims.AccountID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"picture": toPictureResponse(pic),
	})
}

type changeRoleRequest struct {
	RoleID int64 `json:"role_id"`
}

// handleAccountChangeRole is admin-only: the caller's token must carry
// the Admin role name.
func (a *api) handleAccountChangeRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentClaims(r.Context())
	if !ok || claims.RoleName != "Admin" {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "must be a positive integer"}))
		return
	}

	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	if err := a.accounts.ChangeRole(r.Context(), id, req.RoleID); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}
