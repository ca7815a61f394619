package domain

import (
	"fmt"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

var (
	ErrUserNotFound   = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrUserExists     = fmt.Errorf("user already registered: %w", apperr.ErrConflict)
	ErrUsernameTaken  = fmt.Errorf("username already taken: %w", apperr.ErrConflict)
	ErrUserInactive   = fmt.Errorf("user inactive: %w", apperr.ErrAuthenticationRequired)
	ErrOwnsProjects   = fmt.Errorf("user still owns projects: %w", apperr.ErrConflict)
)
