package models

// CreatePantryRequest represents the request body for creating a new pantry.
type CreatePantryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
}

// CreateShareCodeRequest represents the request body for issuing a share code.
// ExpiryHours is optional; the server default applies when it is zero.
type CreateShareCodeRequest struct {
	ExpiryHours int `json:"expiryHours,omitempty"`
}

// RedeemShareCodeRequest represents the request body for redeeming a share code.
type RedeemShareCodeRequest struct {
	Code string `json:"code" binding:"required"`
}
