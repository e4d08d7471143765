package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"spizarnia-backend-go/internal/api"
	"spizarnia-backend-go/internal/config"
	"spizarnia-backend-go/internal/core"
	"spizarnia-backend-go/internal/db"
	"spizarnia-backend-go/internal/middleware"
	"spizarnia-backend-go/pkg/cache"
	"spizarnia-backend-go/pkg/messagequeue"
)

func main() {
	// --- 1. Load .env (local development only; no-op when absent) ---
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	// --- 2. Initialize Logger (Zap) ---
	// NewDevelopment gives human-readable output; switch to NewProduction
	// via GIN_MODE=release below.
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Zap logger initialized successfully.")

	// --- 3. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.",
		zap.String("projectID", appConfig.FirebaseProjectID),
		zap.Int("shareCodeExpiryHours", appConfig.ShareCodeExpiryHours))

	if strings.ToLower(appConfig.GinMode) == "release" {
		prodLogger, err := zap.NewProduction()
		if err == nil {
			zapLogger = prodLogger
			defer zapLogger.Sync()
		}
	}

	// --- 4. Initialize Firebase Admin SDK (Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirestore(initCtx, appConfig); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	zapLogger.Info("Firebase Admin SDK (Firestore, Auth) initialized successfully.")

	firestoreClient := db.GetFirestoreClient()
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firestoreClient == nil || firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firestore or Firebase Auth client is nil after initialization. Application cannot start.")
	}

	// --- 5. Initialize optional infrastructure (Redis, RabbitMQ) ---
	// Both are optional: the share-code flow degrades gracefully without them.
	var pantryCache cache.Cache
	if appConfig.RedisAddress != "" {
		pantryCache, err = cache.NewRedisCache(cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			zapLogger.Warn("Redis unavailable, continuing without pantry-name cache", zap.Error(err))
			pantryCache = nil
		}
	} else {
		zapLogger.Info("REDIS_ADDRESS not set, pantry-name caching disabled.")
	}

	var shareEventQueue messagequeue.MessageQueue
	if appConfig.AMQPURL != "" {
		shareEventQueue, err = messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.AMQPURL})
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable, continuing without share-event publishing", zap.Error(err))
			shareEventQueue = nil
		} else {
			defer shareEventQueue.Close()
		}
	} else {
		zapLogger.Info("AMQP_URL not set, share-event publishing disabled.")
	}

	// --- 6. Initialize Repositories ---
	userRepo := db.NewFirestoreUserRepository(firestoreClient)
	auditRepo := db.NewFirestoreAuditRepository(firestoreClient)
	pantryRepo := db.NewFirestorePantryRepository(firestoreClient)
	membershipRepo := db.NewFirestoreMembershipRepository(firestoreClient)
	shareCodeRepo := db.NewFirestoreShareCodeRepository(firestoreClient)
	zapLogger.Info("Repositories initialized successfully.")

	// --- 7. Initialize Services ---
	auditService := core.NewAuditService(auditRepo)
	userService := core.NewUserService(userRepo)
	membershipService := core.NewMembershipService(membershipRepo)
	pantryService := core.NewPantryService(pantryRepo, membershipService, auditService)
	shareCodeService := core.NewShareCodeService(
		shareCodeRepo,
		pantryRepo,
		membershipService,
		auditService,
		pantryCache,
		shareEventQueue,
		appConfig.ShareCodeExpiryHours,
	)
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	// gin.New() keeps control over the middleware stack.
	router := gin.New()

	// --- 9. Apply Global Middleware (order matters) ---
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))

	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	// --- 10. Setup API Routes ---
	api.SetupRoutes(
		router,
		appConfig,
		zapLogger,
		userService,
		pantryService,
		shareCodeService,
	)

	// --- 11. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 12. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	zapLogger.Info("Attempting graceful shutdown of HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}
