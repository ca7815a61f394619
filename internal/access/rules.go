package access

import "github.com/google/uuid"

// Owned is anything with a single owning user.
type Owned interface {
	Owner() uuid.UUID
}

// MessageParties exposes the two users a message connects.
type MessageParties interface {
	Parties() (sender, recipient uuid.UUID)
}

// ProjectAudience describes who may see a project.
type ProjectAudience interface {
	Owned
	Public() bool
	Assigned(userID uuid.UUID) bool
}

// CanAccess reports whether an authenticated actor holds one of the roles.
func CanAccess(allowed []Role, actor Actor) bool {
	if !actor.Authenticated() {
		return false
	}
	for _, r := range allowed {
		if actor.Role == r {
			return true
		}
	}
	return false
}

func CanOwn(actor Actor, entity Owned) bool {
	if !actor.Authenticated() {
		return false
	}
	return actor.Role == RoleAdmin || entity.Owner() == actor.UserID
}

func CanViewMessage(actor Actor, msg MessageParties) bool {
	if !actor.Authenticated() {
		return false
	}
	sender, recipient := msg.Parties()
	return actor.UserID == sender || actor.UserID == recipient
}

func CanViewProject(actor Actor, p ProjectAudience) bool {
	if p.Public() {
		return true
	}
	if !actor.Authenticated() {
		return false
	}
	return actor.Role == RoleAdmin || p.Owner() == actor.UserID || p.Assigned(actor.UserID)
}
