package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FileRemover deletes a profile-picture binary on the external
// file-storage service. Failures are always treated as best-effort by
// the callers in this package.
type FileRemover interface {
	RemoveProfileFile(ctx context.Context, filename string, accountID int64) error
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx so reads can
// run inside or outside a transaction.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// dbConn is the slice of *pgxpool.Pool the stores rely on.
type dbConn interface {
	queryer
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type AccountsStore struct {
	pool       dbConn
	files      FileRemover
	picBaseURL string
	logger     *slog.Logger
}

func NewAccountsStore(pool *pgxpool.Pool, files FileRemover, picBaseURL string, logger *slog.Logger) *AccountsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountsStore{pool: pool, files: files, picBaseURL: picBaseURL, logger: logger}
}

const accountProjection = `
	SELECT u.id, u.username, u.email, u.user_level_id, ul.level_name, u.created_at, pp.filename
	FROM users u
	JOIN user_levels ul ON u.user_level_id = ul.id
	LEFT JOIN profile_pictures pp ON pp.user_id = u.id
`

func (s *AccountsStore) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	return s.getAccount(ctx, s.pool, accountProjection+` WHERE u.id = $1`, id)
}

func (s *AccountsStore) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	return s.getAccount(ctx, s.pool, accountProjection+` WHERE u.username = $1`, username)
}

func (s *AccountsStore) getAccount(ctx context.Context, q queryer, query string, arg any) (domain.Account, error) {
	var (
		a        domain.Account
		filename pgtype.Text
	)
	err := q.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.RoleID,
		&a.RoleName,
		&a.CreatedAt,
		&filename,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	a.ProfilePictureURL = resolvePictureURL(s.picBaseURL, textOrEmpty(filename))
	return a, nil
}

// GetByEmail returns the account together with its stored password hash
// for credential verification. The hash must not leave the auth flow.
func (s *AccountsStore) GetByEmail(ctx context.Context, email string) (domain.AccountWithPassword, error) {
	const q = `
		SELECT u.id, u.username, u.email, u.user_level_id, ul.level_name, u.created_at, u.password_hash, pp.filename
		FROM users u
		JOIN user_levels ul ON u.user_level_id = ul.id
		LEFT JOIN profile_pictures pp ON pp.user_id = u.id
		WHERE u.email = $1
	`

	var (
		a            domain.AccountWithPassword
		passwordHash pgtype.Text
		filename     pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.RoleID,
		&a.RoleName,
		&a.CreatedAt,
		&passwordHash,
		&filename,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AccountWithPassword{}, domain.ErrNotFound
		}
		return domain.AccountWithPassword{}, fmt.Errorf("get account by email: %w", err)
	}

	a.PasswordHash = textOrEmpty(passwordHash)
	a.ProfilePictureURL = resolvePictureURL(s.picBaseURL, textOrEmpty(filename))
	return a, nil
}

func (s *AccountsStore) Create(ctx context.Context, username, email, passwordHash string, roleID int64) (domain.Account, error) {
	const q = `
		INSERT INTO users (username, email, password_hash, user_level_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	a := domain.Account{Username: username, Email: email, RoleID: roleID}
	err := s.pool.QueryRow(ctx, q, username, email, nullIfEmpty(passwordHash), roleID).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return domain.Account{}, mapAccountWriteError(err)
	}

	const roleQ = `SELECT level_name FROM user_levels WHERE id = $1`
	if err := s.pool.QueryRow(ctx, roleQ, roleID).Scan(&a.RoleName); err != nil {
		return domain.Account{}, fmt.Errorf("lookup role name: %w", err)
	}

	return a, nil
}

// UpdateDetails applies the supplied optional fields and re-reads the
// account inside the same transaction. With no fields supplied it only
// re-reads.
func (s *AccountsStore) UpdateDetails(ctx context.Context, id int64, upd domain.AccountUpdate) (domain.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin update details: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	set := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if upd.Username != nil {
		args = append(args, *upd.Username)
		set = append(set, fmt.Sprintf("username = $%d", len(args)))
	}
	if upd.Email != nil {
		args = append(args, *upd.Email)
		set = append(set, fmt.Sprintf("email = $%d", len(args)))
	}

	if len(set) > 0 {
		args = append(args, id)
		q := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", joinSet(set), len(args))
		tag, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return domain.Account{}, mapAccountWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return domain.Account{}, domain.ErrNotFound
		}
	}

	a, err := s.getAccount(ctx, tx, accountProjection+` WHERE u.id = $1`, id)
	if err != nil {
		return domain.Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("commit update details: %w", err)
	}
	return a, nil
}

// Delete removes the account and its profile-picture row in one
// transaction. The remote binary delete is best-effort: its failure is
// logged and never aborts the transaction.
func (s *AccountsStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete account: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var filename string
	err = tx.QueryRow(ctx, `SELECT filename FROM profile_pictures WHERE user_id = $1`, id).Scan(&filename)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup profile picture: %w", err)
	}

	if filename != "" && s.files != nil {
		if err := s.files.RemoveProfileFile(ctx, filename, id); err != nil {
			s.logger.Warn("profile file delete failed", "account_id", id, "err", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM profile_pictures WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("delete profile picture row: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete account: %w", err)
	}
	return nil
}

func (s *AccountsStore) ChangeRole(ctx context.Context, id, roleID int64) error {
	const q = `UPDATE users SET user_level_id = $1 WHERE id = $2`

	tag, err := s.pool.Exec(ctx, q, roleID, id)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23503" {
			return domain.ErrNotFound
		}
		return fmt.Errorf("change role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *AccountsStore) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	const q = `SELECT password_hash FROM users WHERE id = $1`

	var hash pgtype.Text
	err := s.pool.QueryRow(ctx, q, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return textOrEmpty(hash), nil
}

func (s *AccountsStore) SetPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $1 WHERE id = $2`

	tag, err := s.pool.Exec(ctx, q, passwordHash, id)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapAccountWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		switch pgerr.ConstraintName {
		case "users_username_uq":
			return domain.ErrUsernameTaken
		case "users_email_uq":
			return domain.ErrEmailTaken
		default:
			return domain.ErrConflict
		}
	}
	return fmt.Errorf("write account: %w", err)
}

func joinSet(set []string) string {
	out := set[0]
	for _, s := range set[1:] {
		out += ", " + s
	}
	return out
}
