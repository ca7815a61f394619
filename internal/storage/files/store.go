package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store keeps uploaded binaries (project images, avatars) outside the database.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var ErrUnsupportedType = errors.New("unsupported file type")

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageExtension returns the lower-cased extension of filename when it is an
// accepted image format.
func ImageExtension(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := imageExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q (allowed: jpg, jpeg, png, webp)", ErrUnsupportedType, ext)
	}
	return ext, nil
}

func ContentType(ext string) string {
	if ct, ok := imageExtensions[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// NewKey builds a collision-free object key such as
// "projects/<project id>/<uuid>.jpg".
func NewKey(prefix, scope, ext string) string {
	return path.Join(prefix, scope, uuid.NewString()+ext)
}
