package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"authserver/internal/auth"
	"authserver/internal/domain"
	"authserver/internal/service"
)

type stubCredentialsStore struct {
	t *testing.T

	getByEmailFunc      func(context.Context, string) (domain.AccountWithPassword, error)
	getPasswordHashFunc func(context.Context, int64) (string, error)
	setPasswordHashFunc func(context.Context, int64, string) error
}

func (s *stubCredentialsStore) GetByEmail(ctx context.Context, email string) (domain.AccountWithPassword, error) {
	if s.getByEmailFunc != nil {
		return s.getByEmailFunc(ctx, email)
	}
	s.t.Fatalf("GetByEmail called unexpectedly")
	return domain.AccountWithPassword{}, errors.New("unexpected call")
}

func (s *stubCredentialsStore) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	if s.getPasswordHashFunc != nil {
		return s.getPasswordHashFunc(ctx, id)
	}
	s.t.Fatalf("GetPasswordHash called unexpectedly")
	return "", errors.New("unexpected call")
}

func (s *stubCredentialsStore) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	if s.setPasswordHashFunc != nil {
		return s.setPasswordHashFunc(ctx, id, hash)
	}
	s.t.Fatalf("SetPasswordHash called unexpectedly")
	return errors.New("unexpected call")
}

type stubAccountsStore struct {
	t *testing.T

	createFunc        func(context.Context, string, string, string, int64) (domain.Account, error)
	getByIDFunc       func(context.Context, int64) (domain.Account, error)
	getByUsernameFunc func(context.Context, string) (domain.Account, error)
	updateDetailsFunc func(context.Context, int64, domain.AccountUpdate) (domain.Account, error)
	deleteFunc        func(context.Context, int64) error
	changeRoleFunc    func(context.Context, int64, int64) error
}

func (s *stubAccountsStore) Create(ctx context.Context, username, email, passwordHash string, roleID int64) (domain.Account, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, username, email, passwordHash, roleID)
	}
	s.t.Fatalf("Create called unexpectedly")
	return domain.Account{}, errors.New("unexpected call")
}

func (s *stubAccountsStore) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetByID called unexpectedly")
	return domain.Account{}, errors.New("unexpected call")
}

func (s *stubAccountsStore) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	if s.getByUsernameFunc != nil {
		return s.getByUsernameFunc(ctx, username)
	}
	s.t.Fatalf("GetByUsername called unexpectedly")
	return domain.Account{}, errors.New("unexpected call")
}

func (s *stubAccountsStore) UpdateDetails(ctx context.Context, id int64, upd domain.AccountUpdate) (domain.Account, error) {
	if s.updateDetailsFunc != nil {
		return s.updateDetailsFunc(ctx, id, upd)
	}
	s.t.Fatalf("UpdateDetails called unexpectedly")
	return domain.Account{}, errors.New("unexpected call")
}

func (s *stubAccountsStore) Delete(ctx context.Context, id int64) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, id)
	}
	s.t.Fatalf("Delete called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubAccountsStore) ChangeRole(ctx context.Context, id, roleID int64) error {
	if s.changeRoleFunc != nil {
		return s.changeRoleFunc(ctx, id, roleID)
	}
	s.t.Fatalf("ChangeRole called unexpectedly")
	return errors.New("unexpected call")
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestRouter(t *testing.T, creds *stubCredentialsStore, accounts *stubAccountsStore) http.Handler {
	t.Helper()

	if creds == nil {
		creds = &stubCredentialsStore{t: t}
	}
	if accounts == nil {
		accounts = &stubAccountsStore{t: t}
	}

	return NewRouter(RouterOpts{
		Auth: &service.AuthService{
			Accounts: creds,
			Secret:   testSecret,
		},
		Accounts: &service.AccountsService{
			Store: accounts,
		},
		JWTSecret: testSecret,
	})
}

func bearerFor(t *testing.T, accountID int64, roleName string) string {
	t.Helper()
	token, err := auth.IssueToken(accountID, roleName, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func TestLoginSuccess(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	creds := &stubCredentialsStore{
		t: t,
		getByEmailFunc: func(_ context.Context, email string) (domain.AccountWithPassword, error) {
			if email != "a@x.com" {
				t.Fatalf("unexpected email: %s", email)
			}
			return domain.AccountWithPassword{
				Account:      domain.Account{ID: 7, Username: "player", Email: email, RoleID: 2, RoleName: "User"},
				PasswordHash: hash,
			}, nil
		},
	}

	router := newTestRouter(t, creds, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"a@x.com","password":"correct horse battery"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.Account.ID != 7 || resp.Account.RoleName != "User" {
		t.Fatalf("unexpected account: %+v", resp.Account)
	}

	claims, err := auth.VerifyToken(resp.Token, testSecret)
	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}
	if claims.AccountID != 7 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("right password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	creds := &stubCredentialsStore{
		t: t,
		getByEmailFunc: func(_ context.Context, email string) (domain.AccountWithPassword, error) {
			return domain.AccountWithPassword{
				Account:      domain.Account{ID: 7, Email: email},
				PasswordHash: hash,
			}, nil
		},
	}

	router := newTestRouter(t, creds, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"a@x.com","password":"wrong password"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error.Code != "invalid_credentials" {
		t.Fatalf("unexpected error code: %s", env.Error.Code)
	}
}

func TestLoginBadJSON(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountMeRequiresAuth(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccountMeExpiredToken(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	token, err := auth.IssueToken(7, "User", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error.Code != "token_expired" {
		t.Fatalf("unexpected error code: %s", env.Error.Code)
	}
}

func TestAccountMe(t *testing.T) {
	accounts := &stubAccountsStore{
		t: t,
		getByIDFunc: func(_ context.Context, id int64) (domain.Account, error) {
			if id != 7 {
				t.Fatalf("unexpected id: %d", id)
			}
			return domain.Account{ID: 7, Username: "player", Email: "a@x.com", RoleID: 2, RoleName: "User"}, nil
		},
	}

	router := newTestRouter(t, nil, accounts)
	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	req.Header.Set("Authorization", bearerFor(t, 7, "User"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Account accountResponse `json:"account"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Account.Username != "player" {
		t.Fatalf("unexpected account: %+v", resp.Account)
	}
}

func TestAccountCreateConflict(t *testing.T) {
	accounts := &stubAccountsStore{
		t: t,
		createFunc: func(context.Context, string, string, string, int64) (domain.Account, error) {
			return domain.Account{}, domain.ErrEmailTaken
		},
	}

	router := newTestRouter(t, nil, accounts)
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts",
		strings.NewReader(`{"username":"player","email":"a@x.com","password":"long enough password"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error.Code != "email_taken" {
		t.Fatalf("unexpected error code: %s", env.Error.Code)
	}
}

func TestAccountCreateValidation(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts",
		strings.NewReader(`{"username":"x","email":"bad","password":"short"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountDelete(t *testing.T) {
	deleted := false
	accounts := &stubAccountsStore{
		t: t,
		deleteFunc: func(_ context.Context, id int64) error {
			if id != 7 {
				t.Fatalf("unexpected id: %d", id)
			}
			deleted = true
			return nil
		},
	}

	router := newTestRouter(t, nil, accounts)
	req := httptest.NewRequest(http.MethodDelete, "/v1/accounts/me", nil)
	req.Header.Set("Authorization", bearerFor(t, 7, "User"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !deleted {
		t.Fatal("expected delete to reach the store")
	}
}

func TestChangeRoleRequiresAdmin(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodPut, "/v1/accounts/9/role",
		strings.NewReader(`{"role_id":1}`))
	req.Header.Set("Authorization", bearerFor(t, 7, "User"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChangeRoleAsAdmin(t *testing.T) {
	accounts := &stubAccountsStore{
		t: t,
		changeRoleFunc: func(_ context.Context, id, roleID int64) error {
			if id != 9 || roleID != 1 {
				t.Fatalf("unexpected args: %d %d", id, roleID)
			}
			return nil
		},
	}

	router := newTestRouter(t, nil, accounts)
	req := httptest.NewRequest(http.MethodPut, "/v1/accounts/9/role",
		strings.NewReader(`{"role_id":1}`))
	req.Header.Set("Authorization", bearerFor(t, 1, "Admin"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	router := NewRouter(RouterOpts{
		Auth:     &service.AuthService{},
		Accounts: &service.AccountsService{},
		DBPing: func(context.Context) error {
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthzDatabaseDown(t *testing.T) {
	router := NewRouter(RouterOpts{
		Auth:     &service.AuthService{},
		Accounts: &service.AccountsService{},
		DBPing: func(context.Context) error {
			return errors.New("connection refused")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
