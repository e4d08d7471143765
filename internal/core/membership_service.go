package core

import (
	"context"
	"errors"
	"fmt"

	"spizarnia-backend-go/internal/db"
	"spizarnia-backend-go/internal/models"
)

// membershipService implements the MembershipService interface on top of the
// membership repository. Membership records are written by pantry creation
// (owner role) and share-code redemption (member role); this service only
// answers questions about them.
type membershipService struct {
	membershipRepo db.MembershipRepository
}

// NewMembershipService creates a new MembershipService instance.
func NewMembershipService(mr db.MembershipRepository) MembershipService {
	return &membershipService{
		membershipRepo: mr,
	}
}

// HasPermission reports whether the user's membership on the pantry grants
// the given action. A missing membership is simply "no", not an error.
func (s *membershipService) HasPermission(ctx context.Context, pantryID, userID, action string) (bool, error) {
	if s.membershipRepo == nil {
		return false, errors.New("membershipService: membershipRepo not initialized")
	}

	membership, err := s.membershipRepo.Get(ctx, pantryID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get membership for user '%s' on pantry '%s': %w", userID, pantryID, err)
	}

	return permits(membership.Permissions, action), nil
}

// IsMember reports whether the user holds any membership role on the pantry.
func (s *membershipService) IsMember(ctx context.Context, pantryID, userID string) (bool, error) {
	if s.membershipRepo == nil {
		return false, errors.New("membershipService: membershipRepo not initialized")
	}

	_, err := s.membershipRepo.Get(ctx, pantryID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get membership for user '%s' on pantry '%s': %w", userID, pantryID, err)
	}
	return true, nil
}

func permits(p models.PermissionSet, action string) bool {
	switch action {
	case ActionAdd:
		return p.CanAdd
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	case ActionInvite:
		return p.CanInvite
	default:
		return false
	}
}
