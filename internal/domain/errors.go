package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrEmailTaken         = errors.New("email_taken")
	ErrConflict           = errors.New("conflict")
	ErrNoSigningSecret    = errors.New("signing_secret_missing")
	ErrTokenInvalid       = errors.New("token_invalid")
	ErrTokenExpired       = errors.New("token_expired")
	ErrResetTokenInvalid  = errors.New("reset_token_invalid")
	ErrInternal           = errors.New("internal")
	ErrValidation         = errors.New("validation")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}
