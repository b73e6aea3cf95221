package service

import (
	"context"
	"strings"

	"authserver/internal/auth"
	"authserver/internal/domain"
)

type AccountsStore interface {
	Create(ctx context.Context, username, email, passwordHash string, roleID int64) (domain.Account, error)
	GetByID(ctx context.Context, id int64) (domain.Account, error)
	GetByUsername(ctx context.Context, username string) (domain.Account, error)
	UpdateDetails(ctx context.Context, id int64, upd domain.AccountUpdate) (domain.Account, error)
	Delete(ctx context.Context, id int64) error
	ChangeRole(ctx context.Context, id, roleID int64) error
}

type ProfilePicturesStore interface {
	Put(ctx context.Context, accountID int64, filename string, filesize int64, mediaType string) (domain.ProfilePicture, error)
	GetByAccountID(ctx context.Context, accountID int64) (domain.ProfilePicture, error)
}

// DefaultRoleID is the seeded "User" level.
const DefaultRoleID = 2

type AccountsService struct {
	Store    AccountsStore
	Pictures ProfilePicturesStore
}

func (s *AccountsService) Create(ctx context.Context, username, email, password string, roleID int64) (domain.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	fields := map[string]string{}
	if !validUsername(username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if !validEmail(email) {
		fields["email"] = "must be a valid email"
	}
	if len(password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return domain.Account{}, domain.NewValidationError(fields)
	}

	if roleID == 0 {
		roleID = DefaultRoleID
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Account{}, err
	}

	return s.Store.Create(ctx, username, email, passwordHash, roleID)
}

func (s *AccountsService) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	return s.Store.GetByID(ctx, id)
}

func (s *AccountsService) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	return s.Store.GetByUsername(ctx, strings.TrimSpace(username))
}

// UpdateDetails touches only the supplied fields; with none supplied it
// still returns the current state.
func (s *AccountsService) UpdateDetails(ctx context.Context, id int64, upd domain.AccountUpdate) (domain.Account, error) {
	fields := map[string]string{}
	if upd.Username != nil {
		trimmed := strings.TrimSpace(*upd.Username)
		upd.Username = &trimmed
		if !validUsername(trimmed) {
			fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
		}
	}
	if upd.Email != nil {
		trimmed := strings.TrimSpace(*upd.Email)
		upd.Email = &trimmed
		if !validEmail(trimmed) {
			fields["email"] = "must be a valid email"
		}
	}
	if len(fields) > 0 {
		return domain.Account{}, domain.NewValidationError(fields)
	}

	return s.Store.UpdateDetails(ctx, id, upd)
}

func (s *AccountsService) Delete(ctx context.Context, id int64) error {
	return s.Store.Delete(ctx, id)
}

func (s *AccountsService) PutProfilePicture(ctx context.Context, accountID int64, filename string, filesize int64, mediaType string) (domain.ProfilePicture, error) {
	filename = strings.TrimSpace(filename)

	fields := map[string]string{}
	if filename == "" || strings.Contains(filename, "/") {
		fields["filename"] = "must be a relative file name"
	}
	if filesize <= 0 {
		fields["filesize"] = "must be > 0"
	}
	if len(fields) > 0 {
		return domain.ProfilePicture{}, domain.NewValidationError(fields)
	}

	if mediaType == "" {
		mediaType = "image"
	}

	return s.Pictures.Put(ctx, accountID, filename, filesize, mediaType)
}

func (s *AccountsService) GetProfilePicture(ctx context.Context, accountID int64) (domain.ProfilePicture, error) {
	return s.Pictures.GetByAccountID(ctx, accountID)
}

func (s *AccountsService) ChangeRole(ctx context.Context, id, roleID int64) error {
	if roleID <= 0 {
		return domain.NewValidationError(map[string]string{"role_id": "must be > 0"})
	}
	return s.Store.ChangeRole(ctx, id, roleID)
}

func validUsername(s string) bool {
	if len(s) < 3 || len(s) > 24 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

func validEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	if strings.ContainsAny(s, " \t") {
		return false
	}
	return strings.Contains(s[at+1:], ".")
}
