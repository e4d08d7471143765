package models

import "time"

// ShareCode represents one outstanding invitation token for a pantry.
// The code itself is a human-enterable 4-digit string; codes form a single
// global namespace so that a user entering a code resolves unambiguously.
type ShareCode struct {
	ID        string     `json:"id" firestore:"-"` // Document ID, auto-generated
	Code      string     `json:"code" firestore:"code"`
	PantryID  string     `json:"pantryId" firestore:"pantryId"`
	CreatedBy string     `json:"createdBy" firestore:"createdBy"` // Firebase Auth UID of the issuing owner
	CreatedAt time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	ExpiresAt time.Time  `json:"expiresAt" firestore:"expiresAt"`
	IsActive  bool       `json:"isActive" firestore:"isActive"`
	UsedBy    string     `json:"usedBy,omitempty" firestore:"usedBy,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty" firestore:"usedAt,omitempty"`
}

// IsExpired reports whether the code is past its expiry at the given instant.
// A code whose ExpiresAt has passed must be treated as inactive regardless of
// the stored IsActive flag; callers evaluate this before trusting the flag.
func (s *ShareCode) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RedeemResult is the structured outcome of a redemption attempt. Expected
// failure modes (bad code, expired, used, already a member) are reported here
// rather than as errors, so the API layer can render them as inline form
// feedback without implying a server fault.
type RedeemResult struct {
	Success    bool   `json:"success"`
	PantryID   string `json:"pantryId,omitempty"`
	PantryName string `json:"pantryName,omitempty"`
	Error      string `json:"error,omitempty"`
}
