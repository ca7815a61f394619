package auth

import (
	"net/http"
	"strings"

	usersdomain "github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

// DevVerifier trusts the X-User-* headers. Use this ONLY for development/testing.
type DevVerifier struct{}

func NewDevVerifier() DevVerifier { return DevVerifier{} }

func (DevVerifier) Identify(r *http.Request) (usersdomain.Identity, error) {
	uid := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if uid == "" {
		return usersdomain.Identity{}, ErrNoCredentials
	}
	return usersdomain.Identity{
		ExternalID:  uid,
		Email:       strings.TrimSpace(r.Header.Get("X-User-Email")),
		DisplayName: strings.TrimSpace(r.Header.Get("X-User-Name")),
	}, nil
}
