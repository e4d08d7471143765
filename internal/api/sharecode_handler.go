package api

import (
	"errors"
	"log"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"spizarnia-backend-go/internal/core"
	"spizarnia-backend-go/internal/models"
)

// codePattern mirrors the client-side input filter: digits only, length 4.
var codePattern = regexp.MustCompile(`^\d{4}$`)

// ShareCodeHandler handles API endpoints related to pantry share codes.
type ShareCodeHandler struct {
	shareCodeService core.ShareCodeService
}

// NewShareCodeHandler creates a new ShareCodeHandler.
func NewShareCodeHandler(scs core.ShareCodeService) *ShareCodeHandler {
	return &ShareCodeHandler{shareCodeService: scs}
}

// mapShareCodeErrorToStatus maps errors from core.ShareCodeService to HTTP
// status codes. Redemption validation failures never reach here — they travel
// inside the RedeemResult — so everything below is either a caller mistake or
// an infrastructure fault.
func mapShareCodeErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrPermissionDenied):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrPermissionDenied.Error()}
	case errors.Is(err, core.ErrShareCodeNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrShareCodeNotFound.Error()}
	case errors.Is(err, core.ErrNoActiveCode):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrNoActiveCode.Error()}
	case errors.Is(err, core.ErrPantryNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrPantryNotFound.Error()}
	case errors.Is(err, core.ErrCodeGenerationExhausted):
		// Capacity issue, not a caller mistake; the client may retry once.
		statusCode = http.StatusServiceUnavailable
		errResponse = ErrorResponse{Error: "Could not issue a share code right now, please try again."}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// CreateShareCode handles POST /pantries/:pantryId/share-code
func (h *ShareCodeHandler) CreateShareCode(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	pantryID := c.Param("pantryId")
	if pantryID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Pantry ID is required"})
		return
	}

	// Body is optional; an empty body means the server default expiry.
	var req models.CreateShareCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	code, err := h.shareCodeService.CreateShareCode(c.Request.Context(), pantryID, userID.(string), req.ExpiryHours)
	if err != nil {
		mapShareCodeErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, code)
}

// GetActiveShareCode handles GET /pantries/:pantryId/share-code
func (h *ShareCodeHandler) GetActiveShareCode(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	pantryID := c.Param("pantryId")
	if pantryID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Pantry ID is required"})
		return
	}

	code, err := h.shareCodeService.GetActiveCodeForPantry(c.Request.Context(), pantryID, userID.(string))
	if err != nil {
		mapShareCodeErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// DeactivateShareCode handles DELETE /share-codes/:codeId
func (h *ShareCodeHandler) DeactivateShareCode(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	codeID := c.Param("codeId")
	if codeID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Code ID is required"})
		return
	}

	if err := h.shareCodeService.DeactivateCode(c.Request.Context(), codeID, userID.(string)); err != nil {
		mapShareCodeErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Share code deactivated."})
}

// RedeemShareCode handles POST /share-codes/redeem
//
// Validation failures (unknown code, expired, used, already a member) come
// back with status 200 and success=false in the body, so the client renders
// them as form feedback; non-2xx responses always mean something else broke.
func (h *ShareCodeHandler) RedeemShareCode(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	var req models.RedeemShareCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if !codePattern.MatchString(req.Code) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Share code must be exactly 4 digits"})
		return
	}

	result, err := h.shareCodeService.RedeemShareCode(c.Request.Context(), req.Code, userID.(string))
	if err != nil {
		mapShareCodeErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
