package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spizarnia-backend-go/internal/db"
	"spizarnia-backend-go/internal/models"
)

// Custom errors for the PantryService
var (
	ErrForbiddenAccess = errors.New("user does not have access to this pantry")
)

// pantryService implements the PantryService interface.
type pantryService struct {
	pantryRepo        db.PantryRepository
	membershipService MembershipService
	auditService      AuditService
}

// NewPantryService creates a new PantryService instance.
func NewPantryService(pr db.PantryRepository, ms MembershipService, as AuditService) PantryService {
	return &pantryService{
		pantryRepo:        pr,
		membershipService: ms,
		auditService:      as,
	}
}

// CreatePantry creates a new pantry for a user. The owner's membership record
// (full permission set, including invite) and the reverse-index record are
// written in the same batch as the pantry document.
func (s *pantryService) CreatePantry(ctx context.Context, userID string, req models.CreatePantryRequest) (*models.Pantry, error) {
	if s.pantryRepo == nil || s.auditService == nil {
		return nil, errors.New("pantryService: component not initialized")
	}

	now := time.Now().UTC()
	newPantry := &models.Pantry{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ownerMembership := &models.Membership{
		UserID:      userID,
		Role:        models.RoleOwner,
		Permissions: models.OwnerPermissions(),
		JoinedAt:    now,
	}
	index := &models.UserPantry{
		UserID:  userID,
		Role:    models.RoleOwner,
		AddedAt: now,
	}

	pantryID, err := s.pantryRepo.CreateWithOwner(ctx, newPantry, ownerMembership, index)
	if err != nil {
		return nil, fmt.Errorf("failed to create pantry in repository: %w", err)
	}
	newPantry.ID = pantryID

	auditLogEntry := models.AuditLog{
		UserID:     userID,
		Action:     "PANTRY_CREATE",
		TargetType: "PANTRY",
		TargetID:   pantryID,
		Timestamp:  now,
		Details: map[string]interface{}{
			"name": newPantry.Name,
		},
	}
	if auditErr := s.auditService.CreateAuditLog(ctx, auditLogEntry); auditErr != nil {
		fmt.Printf("Warning: failed to create audit log for PANTRY_CREATE (pantryID: %s): %v\n", pantryID, auditErr)
	}

	return newPantry, nil
}

// GetPantryByID retrieves a pantry if the user is the owner or a member.
func (s *pantryService) GetPantryByID(ctx context.Context, userID, pantryID string) (*models.Pantry, error) {
	if s.pantryRepo == nil || s.membershipService == nil {
		return nil, errors.New("pantryService: component not initialized")
	}

	pantry, err := s.pantryRepo.GetByID(ctx, pantryID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID '%s'", ErrPantryNotFound, pantryID)
		}
		return nil, fmt.Errorf("failed to get pantry '%s' from repository: %w", pantryID, err)
	}

	if pantry.OwnerID != userID {
		isMember, err := s.membershipService.IsMember(ctx, pantryID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership for user '%s' on pantry '%s': %w", userID, pantryID, err)
		}
		if !isMember {
			return nil, fmt.Errorf("%w: user '%s' on pantry '%s'", ErrForbiddenAccess, userID, pantryID)
		}
	}

	return pantry, nil
}

// ListPantries returns every pantry the user belongs to, resolved through the
// reverse index. Index entries whose pantry document is missing are skipped.
func (s *pantryService) ListPantries(ctx context.Context, userID string) ([]*models.Pantry, error) {
	if s.pantryRepo == nil {
		return nil, errors.New("pantryService: pantryRepo not initialized")
	}

	entries, err := s.pantryRepo.ListIndexForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pantry index for user '%s': %w", userID, err)
	}

	pantries := make([]*models.Pantry, 0, len(entries))
	for _, entry := range entries {
		pantry, err := s.pantryRepo.GetByID(ctx, entry.PantryID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				fmt.Printf("Warning: pantry index entry '%s' points at missing pantry '%s'. Skipping.\n", entry.ID, entry.PantryID)
				continue
			}
			return nil, fmt.Errorf("failed to resolve pantry '%s' for user '%s': %w", entry.PantryID, userID, err)
		}
		pantries = append(pantries, pantry)
	}

	return pantries, nil
}
