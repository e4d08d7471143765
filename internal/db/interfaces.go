package db

import (
	"context"
	"errors"

	"spizarnia-backend-go/internal/models"
)

// Sentinel errors shared by the repositories. Services match on these with
// errors.Is to separate expected conditions from infrastructure failures.
var (
	// ErrNotFound is returned when a document is not found.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyConsumed is returned by ConsumeAndGrant when the code's
	// usedBy field is already set at commit time.
	ErrAlreadyConsumed = errors.New("share code already consumed")
	// ErrNoLongerActive is returned by ConsumeAndGrant when the code was
	// deactivated between lookup and commit.
	ErrNoLongerActive = errors.New("share code no longer active")
	// ErrAlreadyMember is returned when a membership record for the
	// (pantry, user) pair already exists.
	ErrAlreadyMember = errors.New("membership already exists")
)

// ShareCodeRepository defines the interface for share-code storage operations.
type ShareCodeRepository interface {
	Create(ctx context.Context, code *models.ShareCode) (string, error) // Returns new document ID
	GetByID(ctx context.Context, codeID string) (*models.ShareCode, error)
	// GetActiveByCode looks up the active share code matching the 4-digit
	// value across all pantries (codes are a single global namespace).
	GetActiveByCode(ctx context.Context, code string) (*models.ShareCode, error)
	// GetActiveByPantryID returns all codes for the pantry still flagged
	// active. More than one indicates a prior failed supersession.
	GetActiveByPantryID(ctx context.Context, pantryID string) ([]*models.ShareCode, error)
	// Deactivate flips isActive to false for a single code.
	Deactivate(ctx context.Context, codeID string) error
	// DeactivateAll flips isActive to false for every given code in one
	// batched write (all-or-nothing).
	DeactivateAll(ctx context.Context, codeIDs []string) error
	// ConsumeAndGrant atomically marks the code consumed by userID and
	// creates the membership plus its reverse-index record. The commit
	// fails with ErrAlreadyConsumed / ErrNoLongerActive / ErrAlreadyMember
	// when a concurrent redemption won the race.
	ConsumeAndGrant(ctx context.Context, codeID, userID string, membership *models.Membership, index *models.UserPantry) error
}

// PantryRepository defines the interface for pantry storage operations.
type PantryRepository interface {
	// CreateWithOwner creates the pantry document together with the owner's
	// membership and reverse-index records in one batched write.
	CreateWithOwner(ctx context.Context, pantry *models.Pantry, owner *models.Membership, index *models.UserPantry) (string, error)
	GetByID(ctx context.Context, pantryID string) (*models.Pantry, error)
	// ListIndexForUser returns the reverse-index records for a user.
	ListIndexForUser(ctx context.Context, userID string) ([]*models.UserPantry, error)
}

// MembershipRepository defines the interface for membership storage operations.
type MembershipRepository interface {
	Get(ctx context.Context, pantryID, userID string) (*models.Membership, error)
}

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}
