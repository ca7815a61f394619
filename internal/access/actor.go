package access

import "github.com/google/uuid"

// Actor is the identity attempting an operation. The zero value is anonymous.
type Actor struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	Username string    `json:"username"`
}

func Anonymous() Actor {
	return Actor{}
}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil && a.Role.Valid()
}

func (a Actor) Is(role Role) bool {
	return a.Authenticated() && a.Role == role
}

func (a Actor) IsAdmin() bool {
	return a.Is(RoleAdmin)
}

// ID returns the user id as a string, or "anonymous".
func (a Actor) ID() string {
	if a.UserID == uuid.Nil {
		return "anonymous"
	}
	return a.UserID.String()
}
