package service

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCapabilities(t *testing.T) {
	tests := []struct {
		name      string
		roles     []string
		overrides []*repository.CapabilityOverride
		has       []string
		lacks     []string
	}{
		{
			name:  "student meets but does not preside",
			roles: []string{types.RoleStudent},
			has:   []string{types.CapMeet, types.CapView, types.CapShareVideo},
			lacks: []string{types.CapPreside, types.CapGrade},
		},
		{
			name:  "guest may only watch",
			roles: []string{types.RoleGuest},
			has:   []string{types.CapView, types.CapViewVideo},
			lacks: []string{types.CapMeet},
		},
		{
			name:  "allow override grants preside",
			roles: []string{types.RoleStudent},
			overrides: []*repository.CapabilityOverride{
				{Role: types.RoleStudent, Capability: types.CapPreside, Permission: types.PermissionAllow},
			},
			has: []string{types.CapPreside},
		},
		{
			name:  "prohibit beats allow from another role",
			roles: []string{types.RoleTeacher, types.RoleStudent},
			overrides: []*repository.CapabilityOverride{
				{Role: types.RoleStudent, Capability: types.CapMeet, Permission: types.PermissionProhibit},
			},
			has:   []string{types.CapPreside},
			lacks: []string{types.CapMeet},
		},
		{
			name:  "overrides for roles not held are ignored",
			roles: []string{types.RoleStudent},
			overrides: []*repository.CapabilityOverride{
				{Role: types.RoleTeacher, Capability: types.CapMeet, Permission: types.PermissionProhibit},
			},
			has: []string{types.CapMeet},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := resolveCapabilities(tt.roles, tt.overrides)
			for _, c := range tt.has {
				assert.True(t, caps.Has(c), c)
			}
			for _, c := range tt.lacks {
				assert.False(t, caps.Has(c), c)
			}
		})
	}
}

func TestPermissionServiceWithoutRoles(t *testing.T) {
	roles := newFakeRoleRepo()
	svc := NewPermissionService(roles, newFakePlenumRepo())

	assert.False(t, svc.HasCapability(context.Background(), "stranger", "p1", types.CapView))
	assert.ErrorIs(t, svc.Require(context.Background(), "stranger", "p1", types.CapView), ErrForbidden)
}

func TestResolveGroupVisibleGroups(t *testing.T) {
	ctx := context.Background()
	roles := newFakeRoleRepo()
	plenum := &repository.Plenum{ID: "p1", GroupMode: types.GroupModeVisible}
	require.NoError(t, roles.Assign(ctx, &repository.RoleAssignment{PlenumID: "p1", UserID: alice, Role: types.RoleStudent}))
	svc := NewPermissionService(roles, newFakePlenumRepo(plenum))

	group, err := svc.ResolveGroup(ctx, alice, plenum, 4, false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), group)

	_, err = svc.ResolveGroup(ctx, alice, plenum, 4, true)
	assert.ErrorIs(t, err, ErrForbidden)

	group, err = svc.ResolveGroup(ctx, alice, &repository.Plenum{ID: "p1"}, 4, true)
	require.NoError(t, err)
	assert.Zero(t, group)
}
