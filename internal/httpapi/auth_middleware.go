package httpapi

import (
	"context"
	"net/http"
	"strings"

	"authserver/internal/auth"
	"authserver/internal/domain"
)

// requireAuth verifies the bearer token and stores its claims on the
// request context. There is no server-side session lookup.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		claims, err := auth.VerifyToken(token, a.secret)
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func CurrentClaims(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(authClaimsKey).(auth.Claims)
	return c, ok
}
