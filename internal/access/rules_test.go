package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type ownedStub struct{ owner uuid.UUID }

func (o ownedStub) Owner() uuid.UUID { return o.owner }

type msgStub struct{ sender, recipient uuid.UUID }

func (m msgStub) Parties() (uuid.UUID, uuid.UUID) { return m.sender, m.recipient }

type projectStub struct {
	owner     uuid.UUID
	published bool
	clients   []uuid.UUID
}

func (p projectStub) Owner() uuid.UUID { return p.owner }
func (p projectStub) Public() bool     { return p.published }
func (p projectStub) Assigned(id uuid.UUID) bool {
	for _, c := range p.clients {
		if c == id {
			return true
		}
	}
	return false
}

func actor(role Role) Actor {
	return Actor{UserID: uuid.New(), Role: role}
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"admin": RoleAdmin, "Architect": RoleArchitect, "arquitecto": RoleArchitect, " client ": RoleClient,
	} {
		got, err := ParseRole(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
}

func TestRole_JSON(t *testing.T) {
	b, err := RoleArchitect.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"architect"`, string(b))

	var r Role
	assert.NoError(t, r.UnmarshalJSON([]byte(`"client"`)))
	assert.Equal(t, RoleClient, r)
	assert.Error(t, r.UnmarshalJSON([]byte(`"root"`)))

	b, err = RoleUnknown.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestCanAccess(t *testing.T) {
	assert.False(t, CanAccess(AllRoles(), Anonymous()))
	assert.True(t, CanAccess([]Role{RoleArchitect, RoleAdmin}, actor(RoleAdmin)))
	assert.False(t, CanAccess([]Role{RoleArchitect, RoleAdmin}, actor(RoleClient)))
	assert.False(t, CanAccess(nil, actor(RoleAdmin)))

	// a known id without a valid role is not authenticated
	assert.False(t, CanAccess(AllRoles(), Actor{UserID: uuid.New()}))
}

func TestCanOwn(t *testing.T) {
	arch := actor(RoleArchitect)
	other := actor(RoleArchitect)

	assert.True(t, CanOwn(arch, ownedStub{owner: arch.UserID}))
	assert.False(t, CanOwn(other, ownedStub{owner: arch.UserID}))
	assert.True(t, CanOwn(actor(RoleAdmin), ownedStub{owner: arch.UserID}))
	assert.False(t, CanOwn(Anonymous(), ownedStub{owner: uuid.Nil}))
}

func TestCanViewMessage(t *testing.T) {
	s, r, x := actor(RoleClient), actor(RoleArchitect), actor(RoleAdmin)
	m := msgStub{sender: s.UserID, recipient: r.UserID}

	assert.True(t, CanViewMessage(s, m))
	assert.True(t, CanViewMessage(r, m))
	// admins get no special read access to other people's mail
	assert.False(t, CanViewMessage(x, m))
	assert.False(t, CanViewMessage(Anonymous(), m))
}

func TestCanViewProject(t *testing.T) {
	owner := actor(RoleArchitect)
	client := actor(RoleClient)
	stranger := actor(RoleClient)
	p := projectStub{owner: owner.UserID, clients: []uuid.UUID{client.UserID}}

	assert.True(t, CanViewProject(owner, p))
	assert.True(t, CanViewProject(client, p))
	assert.True(t, CanViewProject(actor(RoleAdmin), p))
	assert.False(t, CanViewProject(stranger, p))
	assert.False(t, CanViewProject(actor(RoleArchitect), p))
	assert.False(t, CanViewProject(Anonymous(), p))

	p.published = true
	assert.True(t, CanViewProject(stranger, p))
	assert.True(t, CanViewProject(Anonymous(), p))
}

func TestRules_Deterministic(t *testing.T) {
	a := actor(RoleClient)
	p := projectStub{owner: uuid.New()}
	first := CanViewProject(a, p)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, CanViewProject(a, p))
	}
}
