package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"spizarnia-backend-go/internal/models"
)

// firestoreMembershipRepository implements the MembershipRepository interface using Firestore.
// Membership documents are keyed "<pantryId>_<userId>", so an existence check
// is a single document read rather than a query.
type firestoreMembershipRepository struct {
	client *firestore.Client
}

// NewFirestoreMembershipRepository creates a new instance of firestoreMembershipRepository.
func NewFirestoreMembershipRepository(client *firestore.Client) MembershipRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for MembershipRepository.")
	}
	return &firestoreMembershipRepository{client: client}
}

// Get retrieves the membership record for a (pantry, user) pair.
func (r *firestoreMembershipRepository) Get(ctx context.Context, pantryID, userID string) (*models.Membership, error) {
	if pantryID == "" || userID == "" {
		return nil, errors.New("pantryID and userID are required for Get operation")
	}

	docID := models.MembershipDocID(pantryID, userID)
	docSnap, err := r.client.Collection(membershipsCollection).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("membership '%s' not found: %w", docID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get membership '%s': %w", docID, err)
	}

	var membership models.Membership
	if err := docSnap.DataTo(&membership); err != nil {
		return nil, fmt.Errorf("failed to decode membership data for '%s': %w", docID, err)
	}
	membership.ID = docSnap.Ref.ID

	return &membership, nil
}
