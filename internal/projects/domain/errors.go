package domain

import (
	"errors"
	"fmt"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

var (
	ErrProjectNotFound = fmt.Errorf("project %w", apperr.ErrNotFound)
	ErrImageNotFound   = fmt.Errorf("image %w", apperr.ErrNotFound)
	ErrSlugTaken       = errors.New("slug already taken")
	ErrDuplicateTitle  = errors.New("owner already has a project with this title")
)
