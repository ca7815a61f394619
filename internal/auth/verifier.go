package auth

import (
	"errors"
	"net/http"
	"strings"

	usersdomain "github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

// ErrNoCredentials means the request did not try to authenticate.
var ErrNoCredentials = errors.New("no credentials")

// TokenVerifier turns request credentials into a verified identity.
// It returns ErrNoCredentials when the request carries none.
type TokenVerifier interface {
	Identify(r *http.Request) (usersdomain.Identity, error)
}

// bearerToken extracts the Bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
