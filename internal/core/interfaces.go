package core

import (
	"context"

	"spizarnia-backend-go/internal/models"
)

// Actions checked against a membership's permission set.
const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionInvite = "invite"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one with default values.
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// PantryService defines the interface for pantry-related operations.
type PantryService interface {
	CreatePantry(ctx context.Context, userID string, req models.CreatePantryRequest) (*models.Pantry, error)
	GetPantryByID(ctx context.Context, userID, pantryID string) (*models.Pantry, error)
	ListPantries(ctx context.Context, userID string) ([]*models.Pantry, error)
}

// MembershipService is the authority on who belongs to a pantry and what
// they may do there.
type MembershipService interface {
	HasPermission(ctx context.Context, pantryID, userID, action string) (bool, error)
	IsMember(ctx context.Context, pantryID, userID string) (bool, error)
}

// ShareCodeService manages the lifecycle of pantry share codes: issuing,
// display lookup, redemption, and revocation.
type ShareCodeService interface {
	// CreateShareCode supersedes any active code for the pantry and issues
	// a fresh one valid for expiryHours (server default when <= 0).
	CreateShareCode(ctx context.Context, pantryID, ownerID string, expiryHours int) (*models.ShareCode, error)
	// RedeemShareCode consumes a code on behalf of userID. Expected failure
	// modes come back inside the RedeemResult; the error return is reserved
	// for infrastructure faults.
	RedeemShareCode(ctx context.Context, code, userID string) (*models.RedeemResult, error)
	// GetActiveCodeForPantry returns the pantry's current active code, or
	// ErrNoActiveCode if none exists (including lazily-expired ones). The
	// requester must hold invite permission on the pantry.
	GetActiveCodeForPantry(ctx context.Context, pantryID, requesterID string) (*models.ShareCode, error)
	// DeactivateCode revokes a code. Deactivating an already-inactive code
	// is a no-op.
	DeactivateCode(ctx context.Context, codeID, requesterID string) error
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}
