package services

import (
	"errors"

	"github.com/isdelr/notes-be/internal/auth"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrNoteNotFound       = errors.New("note not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken aliases auth.ErrInvalidToken.
	ErrInvalidToken = auth.ErrInvalidToken
)
