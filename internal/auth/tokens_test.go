package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authserver/internal/domain"
)

func TestIssueAndVerifyToken(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	token, err := IssueToken(42, "Admin", secret, 3*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, "Admin", claims.RoleName)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(3*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestIssueToken_NoSecret(t *testing.T) {
	_, err := IssueToken(1, "User", nil, time.Hour)
	assert.ErrorIs(t, err, domain.ErrNoSigningSecret)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, err := IssueToken(1, "User", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken(token, []byte("secret-b"))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyToken_Expired(t *testing.T) {
	secret := []byte("secret")
	token, err := IssueToken(1, "User", secret, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(token, secret)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.False(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, err := VerifyToken("not.a.token", []byte("secret"))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
