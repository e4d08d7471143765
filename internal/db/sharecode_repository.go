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

const (
	shareCodesCollection   = "shareCodes"
	membershipsCollection  = "memberships"
	userPantriesCollection = "userPantries"
)

// firestoreShareCodeRepository implements the ShareCodeRepository interface using Firestore.
type firestoreShareCodeRepository struct {
	client *firestore.Client
}

// NewFirestoreShareCodeRepository creates a new instance of firestoreShareCodeRepository.
func NewFirestoreShareCodeRepository(client *firestore.Client) ShareCodeRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ShareCodeRepository.")
	}
	return &firestoreShareCodeRepository{client: client}
}

// Create adds a new share-code document to Firestore with an auto-generated ID.
// CreatedAt is handled by the serverTimestamp tag; the caller keeps its local
// best-effort timestamp since the write does not return resolved fields.
func (r *firestoreShareCodeRepository) Create(ctx context.Context, code *models.ShareCode) (string, error) {
	docRef := r.client.Collection(shareCodesCollection).NewDoc()
	code.ID = docRef.ID

	_, err := docRef.Create(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to create share code: %w", err)
	}
	return docRef.ID, nil
}

// GetByID retrieves a share-code document from Firestore by its document ID.
func (r *firestoreShareCodeRepository) GetByID(ctx context.Context, codeID string) (*models.ShareCode, error) {
	if codeID == "" {
		return nil, errors.New("codeID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(shareCodesCollection).Doc(codeID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("share code with ID '%s' not found: %w", codeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get share code with ID '%s': %w", codeID, err)
	}

	var sc models.ShareCode
	if err := docSnap.DataTo(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode share code data for ID '%s': %w", codeID, err)
	}
	sc.ID = docSnap.Ref.ID

	return &sc, nil
}

// GetActiveByCode looks up the single active share code matching the given
// 4-digit value. Codes form one global namespace, so the query is not scoped
// to a pantry.
func (r *firestoreShareCodeRepository) GetActiveByCode(ctx context.Context, code string) (*models.ShareCode, error) {
	if code == "" {
		return nil, errors.New("code cannot be empty for GetActiveByCode operation")
	}

	iter := r.client.Collection(shareCodesCollection).
		Where("code", "==", code).
		Where("isActive", "==", true).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("no active share code for value '%s': %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active share code '%s': %w", code, err)
	}

	var sc models.ShareCode
	if err := doc.DataTo(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode share code data (ID: %s): %w", doc.Ref.ID, err)
	}
	sc.ID = doc.Ref.ID

	return &sc, nil
}

// GetActiveByPantryID returns all codes for the pantry still flagged active.
func (r *firestoreShareCodeRepository) GetActiveByPantryID(ctx context.Context, pantryID string) ([]*models.ShareCode, error) {
	if pantryID == "" {
		return nil, errors.New("pantryID cannot be empty for GetActiveByPantryID operation")
	}

	iter := r.client.Collection(shareCodesCollection).
		Where("pantryId", "==", pantryID).
		Where("isActive", "==", true).
		Documents(ctx)
	defer iter.Stop()

	var result []*models.ShareCode
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate active share codes for pantry '%s': %w", pantryID, err)
		}

		var sc models.ShareCode
		if err := doc.DataTo(&sc); err != nil {
			log.Printf("Error decoding share code data (ID: %s) for pantry '%s': %v. Skipping.", doc.Ref.ID, pantryID, err)
			continue
		}
		sc.ID = doc.Ref.ID
		result = append(result, &sc)
	}

	return result, nil
}

// Deactivate flips isActive to false for a single code.
func (r *firestoreShareCodeRepository) Deactivate(ctx context.Context, codeID string) error {
	if codeID == "" {
		return errors.New("codeID cannot be empty for Deactivate operation")
	}
	_, err := r.client.Collection(shareCodesCollection).Doc(codeID).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: false},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("share code with ID '%s' not found for deactivation: %w", codeID, ErrNotFound)
		}
		return fmt.Errorf("failed to deactivate share code with ID '%s': %w", codeID, err)
	}
	return nil
}

// DeactivateAll flips isActive to false for every given code in one batched
// write. Firestore commits the batch atomically.
func (r *firestoreShareCodeRepository) DeactivateAll(ctx context.Context, codeIDs []string) error {
	if len(codeIDs) == 0 {
		return nil
	}

	batch := r.client.Batch()
	for _, id := range codeIDs {
		docRef := r.client.Collection(shareCodesCollection).Doc(id)
		batch.Update(docRef, []firestore.Update{{Path: "isActive", Value: false}})
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to deactivate %d share codes: %w", len(codeIDs), err)
	}
	return nil
}

// ConsumeAndGrant runs the redemption commit as a single Firestore
// transaction: it re-reads the code document, verifies it is still active and
// unconsumed, checks no membership exists yet, then writes the membership,
// the reverse-index record, and the consumption fields together. Two
// concurrent redeemers therefore cannot both pass the usedBy check — the
// transaction retries the loser against the committed state and it fails with
// ErrAlreadyConsumed.
func (r *firestoreShareCodeRepository) ConsumeAndGrant(ctx context.Context, codeID, userID string, membership *models.Membership, index *models.UserPantry) error {
	if codeID == "" || userID == "" {
		return errors.New("codeID and userID are required for ConsumeAndGrant operation")
	}
	if membership == nil || index == nil {
		return errors.New("membership and index records are required for ConsumeAndGrant operation")
	}

	codeRef := r.client.Collection(shareCodesCollection).Doc(codeID)
	memRef := r.client.Collection(membershipsCollection).Doc(models.MembershipDocID(membership.PantryID, userID))
	indexRef := r.client.Collection(userPantriesCollection).Doc(models.UserPantryDocID(userID, membership.PantryID))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// All reads must precede writes inside a Firestore transaction.
		codeSnap, err := tx.Get(codeRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var sc models.ShareCode
		if err := codeSnap.DataTo(&sc); err != nil {
			return fmt.Errorf("failed to decode share code data (ID: %s): %w", codeID, err)
		}
		if sc.UsedBy != "" {
			return ErrAlreadyConsumed
		}
		if !sc.IsActive {
			return ErrNoLongerActive
		}

		memSnap, err := tx.Get(memRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil && memSnap.Exists() {
			return ErrAlreadyMember
		}

		if err := tx.Create(memRef, membership); err != nil {
			return err
		}
		if err := tx.Create(indexRef, index); err != nil {
			return err
		}
		return tx.Update(codeRef, []firestore.Update{
			{Path: "usedBy", Value: userID},
			{Path: "usedAt", Value: firestore.ServerTimestamp},
			{Path: "isActive", Value: false},
		})
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyConsumed) || errors.Is(err, ErrNoLongerActive) ||
			errors.Is(err, ErrAlreadyMember) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to consume share code '%s' for user '%s': %w", codeID, userID, err)
	}

	membership.ID = memRef.ID
	index.ID = indexRef.ID
	return nil
}
