package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"authserver/internal/auth"
	"authserver/internal/domain"
)

type CredentialsStore interface {
	GetByEmail(ctx context.Context, email string) (domain.AccountWithPassword, error)
	GetPasswordHash(ctx context.Context, id int64) (string, error)
	SetPasswordHash(ctx context.Context, id int64, passwordHash string) error
}

type ResetTokensStore interface {
	Create(ctx context.Context, token domain.ResetToken) error
	GetValid(ctx context.Context, token string) (domain.ResetToken, error)
	DeleteForAccount(ctx context.Context, accountID int64) error
}

type ResetMailer interface {
	SendPasswordReset(ctx context.Context, toEmail, token string) error
}

// AuthService orchestrates login, password change, and password reset.
type AuthService struct {
	Accounts CredentialsStore
	Resets   ResetTokensStore
	Mailer   ResetMailer // optional

	// Secret signs bearer tokens. Its absence is a server fault, not a
	// client one; it is checked lazily at first issuance.
	Secret        []byte
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Login verifies the credentials and mints a bearer token carrying the
// account id and role name. A missing account and a wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Account, string, error) {
	email = strings.TrimSpace(email)

	a, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, "", domain.ErrInvalidCredentials
		}
		return domain.Account{}, "", err
	}
	if a.PasswordHash == "" {
		// Externally-provisioned account with no local password.
		return domain.Account{}, "", domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(a.PasswordHash, password)
	if err != nil {
		return domain.Account{}, "", err
	}
	if !ok {
		return domain.Account{}, "", domain.ErrInvalidCredentials
	}

	if len(s.Secret) == 0 {
		return domain.Account{}, "", domain.ErrNoSigningSecret
	}

	token, err := auth.IssueToken(a.ID, a.RoleName, s.Secret, s.tokenTTL())
	if err != nil {
		return domain.Account{}, "", err
	}

	return a.Account, token, nil
}

// ChangePassword rotates the password for an already-authenticated
// account. Previously issued tokens stay valid until natural expiry.
func (s *AuthService) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword string) error {
	hash, err := s.Accounts.GetPasswordHash(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInternal
		}
		return err
	}
	if hash == "" {
		return domain.ErrUnauthorized
	}

	ok, err := auth.VerifyPassword(hash, currentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Accounts.SetPasswordHash(ctx, accountID, newHash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInternal
		}
		return err
	}

	// A password change through any path clears reset state.
	if s.Resets != nil {
		if err := s.Resets.DeleteForAccount(ctx, accountID); err != nil {
			s.logger().Warn("clear reset tokens failed", "account_id", accountID, "err", err)
		}
	}

	return nil
}

// RequestPasswordReset issues a single-use token bound to the account.
// It reveals nothing about whether the email exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	a, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	token := domain.ResetToken{
		Token:     uuid.NewString(),
		AccountID: a.ID,
		ExpiresAt: s.now().Add(s.resetTokenTTL()),
	}
	if err := s.Resets.Create(ctx, token); err != nil {
		return err
	}

	if s.Mailer != nil {
		if err := s.Mailer.SendPasswordReset(ctx, a.Email, token.Token); err != nil {
			return fmt.Errorf("deliver reset token: %w", err)
		}
		return nil
	}

	// Dev setups without SMTP: the token is only reachable through logs.
	s.logger().Debug("reset token issued without mailer", "account_id", a.ID, "token", token.Token)
	return nil
}

// ResetPassword consumes a reset token, rotates the password, and clears
// all outstanding tokens for the account.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	t, err := s.Resets.GetValid(ctx, strings.TrimSpace(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrResetTokenInvalid
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Accounts.SetPasswordHash(ctx, t.AccountID, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInternal
		}
		return err
	}

	if err := s.Resets.DeleteForAccount(ctx, t.AccountID); err != nil {
		return err
	}
	return nil
}

func (s *AuthService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 3 * time.Hour
}

func (s *AuthService) resetTokenTTL() time.Duration {
	if s.ResetTokenTTL > 0 {
		return s.ResetTokenTTL
	}
	return time.Hour
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
