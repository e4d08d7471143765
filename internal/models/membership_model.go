package models

import "time"

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// PermissionSet is the per-membership capability flags.
type PermissionSet struct {
	CanAdd    bool `json:"canAdd" firestore:"canAdd"`
	CanEdit   bool `json:"canEdit" firestore:"canEdit"`
	CanDelete bool `json:"canDelete" firestore:"canDelete"`
	CanInvite bool `json:"canInvite" firestore:"canInvite"`
}

// OwnerPermissions returns the full permission set granted to a pantry owner.
func OwnerPermissions() PermissionSet {
	return PermissionSet{CanAdd: true, CanEdit: true, CanDelete: true, CanInvite: true}
}

// MemberPermissions returns the fixed permission set granted on redemption.
func MemberPermissions() PermissionSet {
	return PermissionSet{CanAdd: true, CanEdit: true, CanDelete: false, CanInvite: false}
}

// Membership is a (user, pantry) relationship carrying a role and permission
// set. The Firestore document ID is "<pantryId>_<userId>" so existence checks
// are a single document read.
type Membership struct {
	ID          string        `json:"id" firestore:"-"`
	PantryID    string        `json:"pantryId" firestore:"pantryId"`
	UserID      string        `json:"userId" firestore:"userId"`
	Role        string        `json:"role" firestore:"role"`
	Permissions PermissionSet `json:"permissions" firestore:"permissions"`
	InvitedBy   string        `json:"invitedBy,omitempty" firestore:"invitedBy,omitempty"`
	JoinedAt    time.Time     `json:"joinedAt" firestore:"joinedAt,serverTimestamp"`
}

// UserPantry is the reverse-index record linking a user to a pantry, written
// atomically with the membership record. Document ID is "<userId>_<pantryId>".
type UserPantry struct {
	ID       string    `json:"id" firestore:"-"`
	UserID   string    `json:"userId" firestore:"userId"`
	PantryID string    `json:"pantryId" firestore:"pantryId"`
	Role     string    `json:"role" firestore:"role"`
	AddedAt  time.Time `json:"addedAt" firestore:"addedAt,serverTimestamp"`
}

// MembershipDocID builds the membership document ID for a (pantry, user) pair.
func MembershipDocID(pantryID, userID string) string {
	return pantryID + "_" + userID
}

// UserPantryDocID builds the reverse-index document ID for a (user, pantry) pair.
func UserPantryDocID(userID, pantryID string) string {
	return userID + "_" + pantryID
}
