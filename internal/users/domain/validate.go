package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

const (
	maxUsername = 150
	maxName     = 150
	maxPhone    = 20
	maxCompany  = 200
	maxBio      = 2000
)

var (
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe    = regexp.MustCompile(`^\+?[0-9 ()-]+$`)
)

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Validate checks every field and returns the parsed role. Only client and
// architect can be chosen at sign-up.
func (in RegisterInput) Validate() (access.Role, error) {
	v := apperr.NewValidation()

	u := strings.TrimSpace(in.Username)
	switch {
	case u == "":
		v.Add("username", "required")
	case utf8.RuneCountInString(u) > maxUsername:
		v.Add("username", "must be at most 150 characters")
	case !usernameRe.MatchString(u):
		v.Add("username", "may contain only letters, digits and @/./+/-/_")
	}

	if in.Email != "" && !emailRe.MatchString(strings.TrimSpace(in.Email)) {
		v.Add("email", "invalid email address")
	}
	checkLen(v, "first_name", in.FirstName, maxName)
	checkLen(v, "last_name", in.LastName, maxName)

	role := access.DefaultRole
	if strings.TrimSpace(in.Role) != "" {
		r, err := access.ParseRole(in.Role)
		switch {
		case err != nil:
			v.Add("role", "must be client or architect")
		case r == access.RoleAdmin:
			v.Add("role", "admin accounts cannot be self-registered")
		default:
			role = r
		}
	}

	return role, v.Err()
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Bio       *string `json:"bio"`
}

func (p ProfileUpdate) Validate() error {
	v := apperr.NewValidation()

	if p.Email != nil {
		e := strings.TrimSpace(*p.Email)
		if e == "" {
			v.Add("email", "required")
		} else if !emailRe.MatchString(e) {
			v.Add("email", "invalid email address")
		}
	}
	if p.FirstName != nil {
		checkLen(v, "first_name", *p.FirstName, maxName)
	}
	if p.LastName != nil {
		checkLen(v, "last_name", *p.LastName, maxName)
	}
	if p.Phone != nil && *p.Phone != "" {
		ph := strings.TrimSpace(*p.Phone)
		if utf8.RuneCountInString(ph) > maxPhone {
			v.Add("phone", "must be at most 20 characters")
		} else if !phoneRe.MatchString(ph) {
			v.Add("phone", "invalid phone number")
		}
	}
	if p.Company != nil {
		checkLen(v, "company", *p.Company, maxCompany)
	}
	if p.Bio != nil {
		checkLen(v, "bio", *p.Bio, maxBio)
	}

	return v.Err()
}

func checkLen(v *apperr.ValidationError, field, val string, max int) {
	if utf8.RuneCountInString(val) > max {
		v.Add(field, "too long")
	}
}
