package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"spizarnia-backend-go/internal/models"
)

const pantriesCollection = "pantries"

// firestorePantryRepository implements the PantryRepository interface using Firestore.
type firestorePantryRepository struct {
	client *firestore.Client
}

// NewFirestorePantryRepository creates a new instance of firestorePantryRepository.
func NewFirestorePantryRepository(client *firestore.Client) PantryRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PantryRepository.")
	}
	return &firestorePantryRepository{client: client}
}

// CreateWithOwner creates the pantry document, the owner's membership record,
// and the reverse-index record in one batched write, so a pantry can never
// exist without an invite-capable owner membership.
func (r *firestorePantryRepository) CreateWithOwner(ctx context.Context, pantry *models.Pantry, owner *models.Membership, index *models.UserPantry) (string, error) {
	if pantry == nil || owner == nil || index == nil {
		return "", errors.New("pantry, owner membership, and index records are required for CreateWithOwner operation")
	}

	pantryRef := r.client.Collection(pantriesCollection).NewDoc()
	pantry.ID = pantryRef.ID
	owner.PantryID = pantryRef.ID
	index.PantryID = pantryRef.ID

	memRef := r.client.Collection(membershipsCollection).Doc(models.MembershipDocID(pantryRef.ID, owner.UserID))
	indexRef := r.client.Collection(userPantriesCollection).Doc(models.UserPantryDocID(index.UserID, pantryRef.ID))

	batch := r.client.Batch()
	batch.Create(pantryRef, pantry)
	batch.Create(memRef, owner)
	batch.Create(indexRef, index)
	if _, err := batch.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to create pantry with owner membership: %w", err)
	}

	owner.ID = memRef.ID
	index.ID = indexRef.ID
	return pantryRef.ID, nil
}

// GetByID retrieves a pantry document from Firestore by its ID.
func (r *firestorePantryRepository) GetByID(ctx context.Context, pantryID string) (*models.Pantry, error) {
	if pantryID == "" {
		return nil, errors.New("pantryID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(pantriesCollection).Doc(pantryID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("pantry with ID '%s' not found: %w", pantryID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pantry with ID '%s': %w", pantryID, err)
	}

	var pantry models.Pantry
	if err := docSnap.DataTo(&pantry); err != nil {
		return nil, fmt.Errorf("failed to decode pantry data for ID '%s': %w", pantryID, err)
	}
	pantry.ID = docSnap.Ref.ID

	return &pantry, nil
}

// ListIndexForUser returns the reverse-index records for a user, ordered by
// join time.
func (r *firestorePantryRepository) ListIndexForUser(ctx context.Context, userID string) ([]*models.UserPantry, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for ListIndexForUser operation")
	}

	iter := r.client.Collection(userPantriesCollection).
		Where("userId", "==", userID).
		OrderBy("addedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var entries []*models.UserPantry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate pantry index for user '%s': %w", userID, err)
		}

		var entry models.UserPantry
		if err := doc.DataTo(&entry); err != nil {
			log.Printf("Error decoding pantry index data (ID: %s) for user '%s': %v. Skipping.", doc.Ref.ID, userID, err)
			continue
		}
		entry.ID = doc.Ref.ID
		entries = append(entries, &entry)
	}

	return entries, nil
}
