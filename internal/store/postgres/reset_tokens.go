package postgres

import (
	"context"
	"errors"
	"fmt"

	"authserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ResetTokensStore struct {
	pool dbConn
}

func NewResetTokensStore(pool *pgxpool.Pool) *ResetTokensStore {
	return &ResetTokensStore{pool: pool}
}

func (s *ResetTokensStore) Create(ctx context.Context, token domain.ResetToken) error {
	const q = `
		INSERT INTO reset_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.pool.Exec(ctx, q, token.Token, token.AccountID, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// GetValid returns the token only while unexpired. Stale rows are
// filtered here, not purged eagerly.
func (s *ResetTokensStore) GetValid(ctx context.Context, token string) (domain.ResetToken, error) {
	const q = `
		SELECT token, user_id, expires_at
		FROM reset_tokens
		WHERE token = $1 AND expires_at > now()
		LIMIT 1
	`

	var t domain.ResetToken
	err := s.pool.QueryRow(ctx, q, token).Scan(&t.Token, &t.AccountID, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ResetToken{}, domain.ErrNotFound
		}
		return domain.ResetToken{}, fmt.Errorf("get reset token: %w", err)
	}
	return t, nil
}

// DeleteForAccount clears all outstanding reset tokens for an account,
// consumed or not.
func (s *ResetTokensStore) DeleteForAccount(ctx context.Context, accountID int64) error {
	const q = `DELETE FROM reset_tokens WHERE user_id = $1`

	_, err := s.pool.Exec(ctx, q, accountID)
	if err != nil {
		return fmt.Errorf("delete reset tokens: %w", err)
	}
	return nil
}
