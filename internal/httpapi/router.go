package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"authserver/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	// DBPing reports backing-store health for /healthz. Optional.
	DBPing func(ctx context.Context) error

	Auth     *service.AuthService
	Accounts *service.AccountsService

	JWTSecret []byte
}

type api struct {
	logger   *slog.Logger
	auth     *service.AuthService
	accounts *service.AccountsService
	secret   []byte
	dbPing   func(ctx context.Context) error
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &api{
		logger:   logger,
		auth:     opts.Auth,
		accounts: opts.Accounts,
		secret:   opts.JWTSecret,
		dbPing:   opts.DBPing,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealthz)

	mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	mux.HandleFunc("PUT /v1/auth/password", a.requireAuth(a.handleChangePassword))
	mux.HandleFunc("POST /v1/auth/reset/request", a.handleResetRequest)
	mux.HandleFunc("POST /v1/auth/reset", a.handleResetSubmit)

	mux.HandleFunc("POST /v1/accounts", a.handleAccountCreate)
	mux.HandleFunc("GET /v1/accounts/me", a.requireAuth(a.handleAccountMe))
	mux.HandleFunc("GET /v1/accounts/{id}", a.requireAuth(a.handleAccountByID))
	mux.HandleFunc("GET /v1/accounts/username/{username}", a.requireAuth(a.handleAccountByUsername))
	mux.HandleFunc("PATCH /v1/accounts/me", a.requireAuth(a.handleAccountUpdate))
	mux.HandleFunc("DELETE /v1/accounts/me", a.requireAuth(a.handleAccountDelete))
	mux.HandleFunc("GET /v1/accounts/me/picture", a.requireAuth(a.handleProfilePictureGet))
	mux.HandleFunc("PUT /v1/accounts/me/picture", a.requireAuth(a.handleProfilePicturePut))
	mux.HandleFunc("PUT /v1/accounts/{id}/role", a.requireAuth(a.handleAccountChangeRole))

	var handler http.Handler = mux
	handler = Recoverer(logger, opts.IsProd)(handler)
	handler = RequestLogger(logger)(handler)
	handler = RequestID()(handler)
	return handler
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if a.dbPing != nil {
		if err := a.dbPing(r.Context()); err != nil {
			a.logger.Error("health check failed", "err", err)
			WriteError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
