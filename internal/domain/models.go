package domain

import "time"

// Account is the public-safe projection of a user row joined with its
// role name. The password hash never travels on this type.
type Account struct {
	ID        int64
	Username  string
	Email     string
	RoleID    int64
	RoleName  string
	CreatedAt time.Time

	// ProfilePictureURL is the URL-qualified filename of the account's
	// profile picture, empty when none is set.
	ProfilePictureURL string
}

type AccountWithPassword struct {
	Account
	PasswordHash string
}

// Role is an immutable reference row (user_levels table).
type Role struct {
	ID   int64
	Name string
}

type ResetToken struct {
	Token     string
	AccountID int64
	ExpiresAt time.Time
}

type ProfilePicture struct {
	ID        int64
	AccountID int64
	Filename  string
	Filesize  int64
	MediaType string
	CreatedAt time.Time

	// URL is the base-qualified filename, resolved at read time and
	// never stored.
	URL string
}

// AccountUpdate enumerates the optional fields UpdateDetails may touch.
// A nil field leaves the column unchanged.
type AccountUpdate struct {
	Username *string
	Email    *string
}
