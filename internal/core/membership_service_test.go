package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spizarnia-backend-go/internal/models"
)

func seedMembership(store *fakeStore, pantryID, userID, role string, perms models.PermissionSet) {
	mem := &models.Membership{
		PantryID:    pantryID,
		UserID:      userID,
		Role:        role,
		Permissions: perms,
		JoinedAt:    time.Now().UTC(),
	}
	store.memberships[models.MembershipDocID(pantryID, userID)] = mem
}

func TestHasPermission(t *testing.T) {
	store := newFakeStore()
	svc := NewMembershipService(store.membershipRepo())
	ctx := context.Background()

	seedMembership(store, "p1", "u-owner", models.RoleOwner, models.OwnerPermissions())
	seedMembership(store, "p1", "u-member", models.RoleMember, models.MemberPermissions())

	t.Run("owner holds every action", func(t *testing.T) {
		for _, action := range []string{ActionAdd, ActionEdit, ActionDelete, ActionInvite} {
			ok, err := svc.HasPermission(ctx, "p1", "u-owner", action)
			require.NoError(t, err)
			assert.True(t, ok, "owner should hold %q", action)
		}
	})

	t.Run("member holds add and edit only", func(t *testing.T) {
		cases := map[string]bool{
			ActionAdd:    true,
			ActionEdit:   true,
			ActionDelete: false,
			ActionInvite: false,
		}
		for action, want := range cases {
			ok, err := svc.HasPermission(ctx, "p1", "u-member", action)
			require.NoError(t, err)
			assert.Equal(t, want, ok, "member permission for %q", action)
		}
	})

	t.Run("missing membership is no, not an error", func(t *testing.T) {
		ok, err := svc.HasPermission(ctx, "p1", "u-stranger", ActionInvite)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown action is denied", func(t *testing.T) {
		ok, err := svc.HasPermission(ctx, "p1", "u-owner", "teleport")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestIsMember(t *testing.T) {
	store := newFakeStore()
	svc := NewMembershipService(store.membershipRepo())
	ctx := context.Background()

	seedMembership(store, "p1", "u-member", models.RoleMember, models.MemberPermissions())

	ok, err := svc.IsMember(ctx, "p1", "u-member")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsMember(ctx, "p1", "u-stranger")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsMember(ctx, "p2", "u-member")
	require.NoError(t, err)
	assert.False(t, ok, "membership is scoped to one pantry")
}
