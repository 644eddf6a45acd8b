package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"user", "technician", "service", "admin"} {
		r, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(r))
	}

	_, err := ParseRole("root")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestActor_IsPrivileged(t *testing.T) {
	var anonymous *Actor

	assert.False(t, anonymous.IsPrivileged())
	assert.False(t, (&Actor{ID: 1, Role: RoleUser}).IsPrivileged())
	assert.False(t, (&Actor{ID: 1, Role: RoleTechnician}).IsPrivileged())
	assert.True(t, (&Actor{ID: 1, Role: RoleService}).IsPrivileged())
	assert.True(t, (&Actor{ID: 1, Role: RoleAdmin}).IsPrivileged())
}

func TestUser_Actor(t *testing.T) {
	u := User{ID: 9, Role: RoleTechnician, Active: true}

	actor := u.Actor()
	assert.Equal(t, uint(9), actor.ID)
	assert.Equal(t, RoleTechnician, actor.Role)
	assert.True(t, actor.Active)
	assert.True(t, u.IsActiveTechnician())

	u.Active = false
	assert.False(t, u.IsActiveTechnician())

	u = User{ID: 3, Role: RoleUser, Active: true}
	assert.False(t, u.IsActiveTechnician())
}
