package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"spizarnia-backend-go/internal/core"
	"spizarnia-backend-go/internal/models"
)

// PantryHandler handles API endpoints related to pantries.
type PantryHandler struct {
	pantryService core.PantryService
}

// NewPantryHandler creates a new PantryHandler.
func NewPantryHandler(ps core.PantryService) *PantryHandler {
	return &PantryHandler{pantryService: ps}
}

// mapPantryErrorToStatus maps errors from core.PantryService to HTTP status codes.
func mapPantryErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrPantryNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrPantryNotFound.Error()}
	case errors.Is(err, core.ErrForbiddenAccess):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrForbiddenAccess.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// CreatePantry handles POST /pantries
func (h *PantryHandler) CreatePantry(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	var req models.CreatePantryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	createdPantry, err := h.pantryService.CreatePantry(c.Request.Context(), userID.(string), req)
	if err != nil {
		mapPantryErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdPantry)
}

// GetPantry handles GET /pantries/:pantryId
func (h *PantryHandler) GetPantry(c *gin.Context) {
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

	pantry, err := h.pantryService.GetPantryByID(c.Request.Context(), userID.(string), pantryID)
	if err != nil {
		mapPantryErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, pantry)
}

// ListPantries handles GET /pantries
func (h *PantryHandler) ListPantries(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	pantries, err := h.pantryService.ListPantries(c.Request.Context(), userID.(string))
	if err != nil {
		mapPantryErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, pantries)
}
