package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spizarnia-backend-go/internal/config"
	"spizarnia-backend-go/internal/core"
	"spizarnia-backend-go/internal/db"
	"spizarnia-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and
// middleware. Global middleware (request ID, logging, recovery, CORS) is
// applied to the router before this function is called, in main.go.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	userService core.UserService,
	pantryService core.PantryService,
	shareCodeService core.ShareCodeService,
) {
	// The Firebase Auth client must be available after db.InitFirestore().
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		logger.Fatal("CRITICAL_SETUP_ERROR: Firebase Auth client is not initialized. AuthMiddleware cannot be created, and routes will not be set up.")
		panic("Firebase Auth client is nil during route setup. Ensure db.InitFirestore() was called and succeeded.")
	}
	authMW := middleware.NewAuthMiddleware(firebaseAuthClient)

	authHandler := NewAuthHandler(userService)
	userHandler := NewUserHandler(userService)
	pantryHandler := NewPantryHandler(pantryService)
	shareCodeHandler := NewShareCodeHandler(shareCodeService)

	apiV1 := router.Group("/api/v1")
	{
		// --- User and Authentication Endpoints ---
		userAuthGroup := apiV1.Group("/users")
		{
			// Called after client-side Firebase login/signup to ensure a backend profile exists.
			userAuthGroup.POST("/initialize", authMW.VerifyToken(), authHandler.InitializeUserProfile)
			userAuthGroup.GET("/me", authMW.VerifyToken(), userHandler.GetCurrentUserProfile)
		}

		// --- Pantry Endpoints ---
		pantriesRouteGroup := apiV1.Group("/pantries", authMW.VerifyToken())
		{
			pantriesRouteGroup.POST("", pantryHandler.CreatePantry)
			pantriesRouteGroup.GET("", pantryHandler.ListPantries)
			pantriesRouteGroup.GET("/:pantryId", pantryHandler.GetPantry)

			// Share-code issuance and display, nested under the pantry.
			pantriesRouteGroup.POST("/:pantryId/share-code", shareCodeHandler.CreateShareCode)
			pantriesRouteGroup.GET("/:pantryId/share-code", shareCodeHandler.GetActiveShareCode)
		}

		// --- Share-Code Endpoints ---
		// Redemption and revocation address codes directly, not via a pantry:
		// the redeemer only holds the 4-digit value.
		shareCodesRouteGroup := apiV1.Group("/share-codes", authMW.VerifyToken())
		{
			shareCodesRouteGroup.POST("/redeem", shareCodeHandler.RedeemShareCode)
			shareCodesRouteGroup.DELETE("/:codeId", shareCodeHandler.DeactivateShareCode)
		}
	}

	// --- General Health Check Endpoint ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Spizarnia backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
