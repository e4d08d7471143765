package core

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spizarnia-backend-go/internal/models"
)

const (
	testOwnerID    = "user-owner"
	testRedeemerID = "user-redeemer"
)

// newShareCodeTestEnv builds a service over a fresh fake store with one pantry
// owned by testOwnerID. Returns the store, the service, and the pantry ID.
func newShareCodeTestEnv(t *testing.T) (*fakeStore, ShareCodeService, string) {
	t.Helper()
	store := newFakeStore()

	now := time.Now().UTC()
	pantryID, err := store.pantryRepo().CreateWithOwner(context.Background(),
		&models.Pantry{OwnerID: testOwnerID, Name: "Domowa spiżarnia", CreatedAt: now, UpdatedAt: now},
		&models.Membership{UserID: testOwnerID, Role: models.RoleOwner, Permissions: models.OwnerPermissions(), JoinedAt: now},
		&models.UserPantry{UserID: testOwnerID, Role: models.RoleOwner, AddedAt: now},
	)
	require.NoError(t, err)

	svc := NewShareCodeService(
		store.shareCodes(),
		store.pantryRepo(),
		NewMembershipService(store.membershipRepo()),
		NewAuditService(store.auditRepo()),
		nil, // cache
		nil, // message queue
		DefaultExpiryHours,
	)
	return store, svc, pantryID
}

func TestCreateShareCode_HappyPath(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	before := time.Now().UTC()
	sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)
	require.NotNil(t, sc)

	assert.Regexp(t, regexp.MustCompile(`^\d{4}$`), sc.Code)
	n, convErr := strconv.Atoi(sc.Code)
	require.NoError(t, convErr)
	assert.GreaterOrEqual(t, n, 1000)
	assert.LessOrEqual(t, n, 9999)

	assert.True(t, sc.IsActive)
	assert.Equal(t, pantryID, sc.PantryID)
	assert.Equal(t, testOwnerID, sc.CreatedBy)
	assert.Empty(t, sc.UsedBy)

	// Expiry lands 24h out, give or take test execution time.
	assert.WithinDuration(t, before.Add(24*time.Hour), sc.ExpiresAt, 5*time.Second)

	assert.Contains(t, store.auditActions(), "SHARE_CODE_CREATE")
}

func TestCreateShareCode_DefaultExpiryWhenUnspecified(t *testing.T) {
	_, svc, pantryID := newShareCodeTestEnv(t)

	before := time.Now().UTC()
	sc, err := svc.CreateShareCode(context.Background(), pantryID, testOwnerID, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(DefaultExpiryHours*time.Hour), sc.ExpiresAt, 5*time.Second)
}

func TestCreateShareCode_ConfiguredDefaultExpiry(t *testing.T) {
	store, _, pantryID := newShareCodeTestEnv(t)

	// A service configured with SHARE_CODE_EXPIRY_HOURS=48 applies that
	// lifetime when the caller does not request one.
	svc := NewShareCodeService(
		store.shareCodes(),
		store.pantryRepo(),
		NewMembershipService(store.membershipRepo()),
		NewAuditService(store.auditRepo()),
		nil,
		nil,
		48,
	)

	before := time.Now().UTC()
	sc, err := svc.CreateShareCode(context.Background(), pantryID, testOwnerID, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(48*time.Hour), sc.ExpiresAt, 5*time.Second)

	// An explicit request still wins over the configured default.
	sc, err = svc.CreateShareCode(context.Background(), pantryID, testOwnerID, 6)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(6*time.Hour), sc.ExpiresAt, 5*time.Second)
}

func TestCreateShareCode_SupersedesPreviousCode(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	first, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)
	second, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)

	assert.False(t, store.storedCode(first.ID).IsActive, "first code should be deactivated by supersession")
	assert.True(t, store.storedCode(second.ID).IsActive)

	// Exactly one code per pantry survives as the active one.
	active, err := svc.GetActiveCodeForPantry(ctx, pantryID, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	// The superseded code is dead for redemption even though it never expired.
	result, err := svc.RedeemShareCode(ctx, first.Code, testRedeemerID)
	require.NoError(t, err)
	if first.Code != second.Code { // re-roll may produce the same 4 digits
		assert.False(t, result.Success)
		assert.Equal(t, MsgCodeNotFound, result.Error)
	}
}

func TestCreateShareCode_PermissionDenied(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	// A complete stranger.
	_, err := svc.CreateShareCode(ctx, pantryID, "user-stranger", 24)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// A regular member: redeemed permissions exclude invite.
	mem := &models.Membership{PantryID: pantryID, UserID: testRedeemerID, Role: models.RoleMember, Permissions: models.MemberPermissions()}
	store.memberships[models.MembershipDocID(pantryID, testRedeemerID)] = mem

	_, err = svc.CreateShareCode(ctx, pantryID, testRedeemerID, 24)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCreateShareCode_GenerationExhausted(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)

	// Every candidate collides with an active code.
	store.activeByCodeHook = func(code string) (*models.ShareCode, error) {
		return &models.ShareCode{ID: "other", Code: code, IsActive: true}, nil
	}

	_, err := svc.CreateShareCode(context.Background(), pantryID, testOwnerID, 24)
	assert.ErrorIs(t, err, ErrCodeGenerationExhausted)
}

func TestRandomCode_RangeAndSpread(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		code := randomCode()
		require.Len(t, code, 4)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1000)
		require.LessOrEqual(t, n, 9999)
		seen[code] = struct{}{}
	}
	// 10k uniform draws over 9000 values yield ~6100 distinct codes; far
	// fewer indicates a broken generator.
	assert.Greater(t, len(seen), 3000)
}

func TestRedeemShareCode_HappyPath(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)

	result, err := svc.RedeemShareCode(ctx, sc.Code, testRedeemerID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, pantryID, result.PantryID)
	assert.Equal(t, "Domowa spiżarnia", result.PantryName)
	assert.Empty(t, result.Error)

	// Code is consumed and inactive.
	stored := store.storedCode(sc.ID)
	assert.Equal(t, testRedeemerID, stored.UsedBy)
	assert.NotNil(t, stored.UsedAt)
	assert.False(t, stored.IsActive)

	// Membership carries the fixed member permission set.
	mem, err := store.membershipRepo().Get(ctx, pantryID, testRedeemerID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, mem.Role)
	assert.Equal(t, models.MemberPermissions(), mem.Permissions)
	assert.Equal(t, testOwnerID, mem.InvitedBy)

	// Reverse index was written in the same commit.
	entries, err := store.pantryRepo().ListIndexForUser(ctx, testRedeemerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pantryID, entries[0].PantryID)

	assert.Contains(t, store.auditActions(), "SHARE_CODE_REDEEM")
}

func TestRedeemShareCode_UnknownCode(t *testing.T) {
	_, svc, _ := newShareCodeTestEnv(t)

	result, err := svc.RedeemShareCode(context.Background(), "0000", testRedeemerID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, MsgCodeNotFound, result.Error)
	assert.Empty(t, result.PantryID)
}

func TestRedeemShareCode_SingleUse(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)

	first, err := svc.RedeemShareCode(ctx, sc.Code, testRedeemerID)
	require.NoError(t, err)
	require.True(t, first.Success)

	// A second redeemer sees "already used", not "not found": the consumed
	// code still exists, it is just spent.
	store.mu.Lock()
	store.codes[sc.ID].IsActive = true // simulate a stale isActive flag
	store.mu.Unlock()
	second, err := svc.RedeemShareCode(ctx, sc.Code, "user-third")
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, MsgCodeUsed, second.Error)
	assert.Equal(t, 2, store.membershipCount()) // owner + first redeemer only
}

func TestRedeemShareCode_ConcurrentSingleWinner(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)

	const redeemers = 8
	results := make([]*models.RedeemResult, redeemers)
	var wg sync.WaitGroup
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, rerr := svc.RedeemShareCode(ctx, sc.Code, fmt.Sprintf("user-racer-%d", i))
			assert.NoError(t, rerr)
			results[i] = r
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, r := range results {
		require.NotNil(t, r)
		if r.Success {
			successes++
		} else {
			assert.Contains(t, []string{MsgCodeUsed, MsgCodeNotFound}, r.Error)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent redeemer may win")
	assert.Equal(t, 2, store.membershipCount())
}

func TestRedeemShareCode_ExpiryBoundary(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	t.Run("expired one second ago", func(t *testing.T) {
		sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
		require.NoError(t, err)
		store.setCodeExpiry(sc.ID, time.Now().UTC().Add(-time.Second))

		result, err := svc.RedeemShareCode(ctx, sc.Code, testRedeemerID)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, MsgCodeExpired, result.Error)

		// Lazy expiry corrected the stored flag.
		assert.False(t, store.storedCode(sc.ID).IsActive)
	})

	t.Run("expires one second from now", func(t *testing.T) {
		sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
		require.NoError(t, err)
		store.setCodeExpiry(sc.ID, time.Now().UTC().Add(time.Second))

		result, err := svc.RedeemShareCode(ctx, sc.Code, testRedeemerID)
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestRedeemShareCode_IssuerCannotRedeemOwnCode(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)

	// The issuer is already a member (the owner), so self-redemption is
	// rejected on the membership check.
	result, err := svc.RedeemShareCode(ctx, sc.Code, testOwnerID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, MsgAlreadyMember, result.Error)

	// The code survives the failed attempt for a legitimate redeemer.
	assert.True(t, store.storedCode(sc.ID).IsActive)
	assert.Empty(t, store.storedCode(sc.ID).UsedBy)
}

func TestRedeemShareCode_AlreadyMember(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
	require.NoError(t, err)

	mem := &models.Membership{PantryID: pantryID, UserID: testRedeemerID, Role: models.RoleMember, Permissions: models.MemberPermissions()}
	store.memberships[models.MembershipDocID(pantryID, testRedeemerID)] = mem
	before := store.membershipCount()

	result, err := svc.RedeemShareCode(ctx, sc.Code, testRedeemerID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, MsgAlreadyMember, result.Error)
	assert.Equal(t, before, store.membershipCount(), "no duplicate membership record")
}

func TestGetActiveCodeForPantry(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	t.Run("none issued", func(t *testing.T) {
		_, err := svc.GetActiveCodeForPantry(ctx, pantryID, testOwnerID)
		assert.ErrorIs(t, err, ErrNoActiveCode)
	})

	t.Run("active code returned", func(t *testing.T) {
		sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
		require.NoError(t, err)

		got, err := svc.GetActiveCodeForPantry(ctx, pantryID, testOwnerID)
		require.NoError(t, err)
		assert.Equal(t, sc.ID, got.ID)
		assert.Equal(t, sc.Code, got.Code)
	})

	t.Run("expired code corrected and reported absent", func(t *testing.T) {
		sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
		require.NoError(t, err)
		store.setCodeExpiry(sc.ID, time.Now().UTC().Add(-time.Minute))

		_, err = svc.GetActiveCodeForPantry(ctx, pantryID, testOwnerID)
		assert.ErrorIs(t, err, ErrNoActiveCode)
		assert.False(t, store.storedCode(sc.ID).IsActive, "lazy expiry should flip the stored flag")
	})

	t.Run("stranger cannot view the code", func(t *testing.T) {
		sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
		require.NoError(t, err)

		_, err = svc.GetActiveCodeForPantry(ctx, pantryID, "user-stranger")
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.True(t, store.storedCode(sc.ID).IsActive)
	})

	t.Run("plain member cannot view the code", func(t *testing.T) {
		// Possession of the code grants membership, so only invite-capable
		// members may read it.
		seedMembership(store, pantryID, "user-plain-member", models.RoleMember, models.MemberPermissions())

		_, err := svc.GetActiveCodeForPantry(ctx, pantryID, "user-plain-member")
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestDeactivateCode(t *testing.T) {
	store, svc, pantryID := newShareCodeTestEnv(t)
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		err := svc.DeactivateCode(ctx, "missing-id", testOwnerID)
		assert.ErrorIs(t, err, ErrShareCodeNotFound)
	})

	t.Run("issuer revokes and redemption fails afterwards", func(t *testing.T) {
		sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
		require.NoError(t, err)

		require.NoError(t, svc.DeactivateCode(ctx, sc.ID, testOwnerID))
		assert.False(t, store.storedCode(sc.ID).IsActive)

		result, err := svc.RedeemShareCode(ctx, sc.Code, testRedeemerID)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, MsgCodeNotFound, result.Error)

		// Revoking an already-inactive code is a no-op.
		assert.NoError(t, svc.DeactivateCode(ctx, sc.ID, testOwnerID))
	})

	t.Run("member without invite permission is rejected", func(t *testing.T) {
		sc, err := svc.CreateShareCode(ctx, pantryID, testOwnerID, 24)
		require.NoError(t, err)

		mem := &models.Membership{PantryID: pantryID, UserID: "user-plain", Role: models.RoleMember, Permissions: models.MemberPermissions()}
		store.memberships[models.MembershipDocID(pantryID, "user-plain")] = mem

		err = svc.DeactivateCode(ctx, sc.ID, "user-plain")
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.True(t, store.storedCode(sc.ID).IsActive)
	})
}
