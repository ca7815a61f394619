package access

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of roles a profile can carry.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleArchitect
	RoleClient
)

// DefaultRole is assigned to every profile created without an explicit role.
const DefaultRole = RoleClient

var roleNames = map[Role]string{
	RoleAdmin:     "admin",
	RoleArchitect: "architect",
	RoleClient:    "client",
}

// AllRoles lists the valid roles in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleArchitect, RoleClient}
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "administrator":
		return RoleAdmin, nil
	case "architect", "arquitecto":
		return RoleArchitect, nil
	case "client", "cliente":
		return RoleClient, nil
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "unknown"
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// MarshalText yields "" for a role that was never set.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return []byte{}, nil
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = RoleUnknown
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(s))
}
