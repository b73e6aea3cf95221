package postgres

import (
	"github.com/jackc/pgx/v5/pgtype"
)

func textOrEmpty(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// resolvePictureURL qualifies a stored relative filename with the
// configured base URL. The base is never persisted.
func resolvePictureURL(base, filename string) string {
	if filename == "" {
		return ""
	}
	return base + filename
}
