package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
)

// User is the login identity. ExternalID is the identity provider's subject
// (Firebase UID, or the dev header value).
type User struct {
	ID         uuid.UUID  `json:"id"`
	ExternalID string     `json:"-"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	IsActive   bool       `json:"is_active"`
	DateJoined time.Time  `json:"date_joined"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Profile carries the role; exactly one per user.
type Profile struct {
	UserID    uuid.UUID   `json:"user_id"`
	Role      access.Role `json:"role"`
	Phone     string      `json:"phone"`
	Company   string      `json:"company"`
	Bio       string      `json:"bio"`
	AvatarKey string      `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Account is a user joined with its profile.
type Account struct {
	User
	Profile Profile `json:"profile"`
}

func (a Account) Actor() access.Actor {
	return access.Actor{UserID: a.ID, Role: a.Profile.Role, Username: a.Username}
}

// Identity is what the authentication layer knows about a caller before
// the account is looked up.
type Identity struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// NewUser is the input of account creation.
type NewUser struct {
	ExternalID string
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Role       access.Role
}

type ListFilter struct {
	Role   access.Role
	Search string
	Limit  int
	Offset int
}

// RoleCounts is the number of profiles per role.
type RoleCounts map[access.Role]int

func (rc RoleCounts) Total() int {
	n := 0
	for _, v := range rc {
		n += v
	}
	return n
}
