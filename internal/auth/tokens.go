package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authserver/internal/domain"
)

// Claims is the bearer credential payload: the account identity plus the
// role name, on top of the standard issued-at/expiry claims.
type Claims struct {
	AccountID int64  `json:"account_id"`
	RoleName  string `json:"role_name"`
	jwt.RegisteredClaims
}

func IssueToken(accountID int64, roleName string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", domain.ErrNoSigningSecret
	}

	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		RoleName:  roleName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func VerifyToken(tokenString string, secret []byte) (Claims, error) {
	if len(secret) == 0 {
		return Claims{}, domain.ErrNoSigningSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, domain.ErrTokenExpired
		}
		return Claims{}, domain.ErrTokenInvalid
	}
	if !token.Valid {
		return Claims{}, domain.ErrTokenInvalid
	}

	return *claims, nil
}
