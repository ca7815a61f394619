package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

func strPtr(s string) *string { return &s }

func TestRegisterInput_Validate(t *testing.T) {
	role, err := RegisterInput{Username: "ana.m", Email: "ana@example.com", Role: "architect"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, access.RoleArchitect, role)

	role, err = RegisterInput{Username: "bob"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, access.RoleClient, role)
}

func TestRegisterInput_RejectsAdminAndCollectsAllErrors(t *testing.T) {
	_, err := RegisterInput{Username: "", Email: "nope", Role: "admin"}.Validate()
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("username"))
	assert.True(t, v.Has("email"))
	assert.True(t, v.Has("role"))
}

func TestProfileUpdate_Validate(t *testing.T) {
	assert.NoError(t, ProfileUpdate{}.Validate())
	assert.NoError(t, ProfileUpdate{Phone: strPtr("+34 600-123-456"), Email: strPtr("x@y.io")}.Validate())
	assert.NoError(t, ProfileUpdate{Phone: strPtr("")}.Validate())

	err := ProfileUpdate{
		Email: strPtr("bad"),
		Phone: strPtr("+34 600 123 456 789 000 111"),
	}.Validate()
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("email"))
	assert.True(t, v.Has("phone"))
}

func TestAccount_ActorAndName(t *testing.T) {
	a := Account{User: User{Username: "ana"}, Profile: Profile{Role: access.RoleClient}}
	assert.Equal(t, "ana", a.FullName())
	a.FirstName, a.LastName = "Ana", "Mora"
	assert.Equal(t, "Ana Mora", a.FullName())
	assert.Equal(t, access.RoleClient, a.Actor().Role)
}

func TestRoleCounts_Total(t *testing.T) {
	rc := RoleCounts{access.RoleAdmin: 1, access.RoleClient: 4}
	assert.Equal(t, 5, rc.Total())
}
