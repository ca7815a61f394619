package access

import "github.com/vulcano-studio/vulcano-backend/internal/apperr"

// Decision is the three-way outcome of an access check.
type Decision int

const (
	Allowed Decision = iota
	AuthenticationRequired
	PermissionDenied
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case AuthenticationRequired:
		return "authentication_required"
	default:
		return "permission_denied"
	}
}

// Err maps the decision onto the error taxonomy; Allowed yields nil.
func (d Decision) Err() error {
	switch d {
	case Allowed:
		return nil
	case AuthenticationRequired:
		return apperr.ErrAuthenticationRequired
	default:
		return apperr.ErrPermissionDenied
	}
}
