package models

import "time"

// Pantry represents a named inventory container owned by one user and
// optionally shared with others through memberships.
type Pantry struct {
	ID          string    `json:"id" firestore:"-"` // Document ID, auto-generated
	OwnerID     string    `json:"ownerId" firestore:"ownerId"` // Firebase Auth UID of the owner
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
