package models

import "time"

// User represents a user profile in the system.
type User struct {
	ID          string    `json:"id" firestore:"-"` // Firebase Auth UID, will be the document ID
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
