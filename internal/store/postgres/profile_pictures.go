package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfilePicturesStore struct {
	pool       dbConn
	files      FileRemover
	picBaseURL string
	logger     *slog.Logger
}

func NewProfilePicturesStore(pool *pgxpool.Pool, files FileRemover, picBaseURL string, logger *slog.Logger) *ProfilePicturesStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfilePicturesStore{pool: pool, files: files, picBaseURL: picBaseURL, logger: logger}
}

func (s *ProfilePicturesStore) GetByAccountID(ctx context.Context, accountID int64) (domain.ProfilePicture, error) {
	const q = `
		SELECT id, user_id, filename, filesize, media_type, created_at
		FROM profile_pictures
		WHERE user_id = $1
	`
	return s.scanPicture(s.pool.QueryRow(ctx, q, accountID))
}

// Put stores picture metadata with overwrite-in-place semantics: one row
// per account, the second write fully replaces the first. When a previous
// filename is replaced, the old binary is deleted on the storage service
// best-effort.
func (s *ProfilePicturesStore) Put(ctx context.Context, accountID int64, filename string, filesize int64, mediaType string) (domain.ProfilePicture, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ProfilePicture{}, fmt.Errorf("begin put profile picture: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous string
	err = tx.QueryRow(ctx, `SELECT filename FROM profile_pictures WHERE user_id = $1`, accountID).Scan(&previous)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.ProfilePicture{}, fmt.Errorf("lookup previous picture: %w", err)
	}

	const upsert = `
		INSERT INTO profile_pictures (user_id, filename, filesize, media_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT profile_pictures_user_id_uq
		DO UPDATE SET filename = EXCLUDED.filename, filesize = EXCLUDED.filesize, media_type = EXCLUDED.media_type
	`
	if _, err := tx.Exec(ctx, upsert, accountID, filename, filesize, mediaType); err != nil {
		return domain.ProfilePicture{}, fmt.Errorf("upsert profile picture: %w", err)
	}

	if previous != "" && previous != filename && s.files != nil {
		if err := s.files.RemoveProfileFile(ctx, previous, accountID); err != nil {
			s.logger.Warn("previous profile file delete failed", "account_id", accountID, "err", err)
		}
	}

	const readBack = `
		SELECT id, user_id, filename, filesize, media_type, created_at
		FROM profile_pictures
		WHERE user_id = $1
	`
	pic, err := s.scanPicture(tx.QueryRow(ctx, readBack, accountID))
	if err != nil {
		return domain.ProfilePicture{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ProfilePicture{}, fmt.Errorf("commit put profile picture: %w", err)
	}
	return pic, nil
}

func (s *ProfilePicturesStore) scanPicture(row pgx.Row) (domain.ProfilePicture, error) {
	var p domain.ProfilePicture
	err := row.Scan(&p.ID, &p.AccountID, &p.Filename, &p.Filesize, &p.MediaType, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProfilePicture{}, domain.ErrNotFound
		}
		return domain.ProfilePicture{}, fmt.Errorf("scan profile picture: %w", err)
	}
	p.URL = resolvePictureURL(s.picBaseURL, p.Filename)
	return p, nil
}
