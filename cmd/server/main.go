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
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/api"
	"github.com/example/cooltech/internal/cache"
	"github.com/example/cooltech/internal/config"
	"github.com/example/cooltech/internal/core"
	"github.com/example/cooltech/internal/crypto"
	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/middleware"
	"github.com/example/cooltech/internal/seed"
)

func newLogger() (*zap.Logger, error) {
	if strings.ToLower(os.Getenv("GIN_MODE")) == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	// --- 1. Initialize Logger (Zap) ---
	zapLogger, err := newLogger()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.", zap.String("storeDriver", appConfig.StoreDriver))

	// --- 3. Open storage and cache. Failure here is fatal. ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()

	store, err := db.Open(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to the store", zap.Error(err))
	}
	defer store.Close()

	listingCache, err := cache.Open(initCtx, cache.RedisConfig{
		Address:  appConfig.RedisAddr,
		Password: appConfig.RedisPassword,
		DB:       appConfig.RedisDB,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to Redis", zap.Error(err))
	}
	defer listingCache.Close()

	// --- 4. Initialize Services ---
	hasher := crypto.NewPasswordHasher(appConfig.BcryptCost)
	tokens := crypto.NewTokenIssuer(appConfig.JWTSecret, appConfig.TokenTTL)
	policy := core.Policy{StrictCredentialWrites: appConfig.StrictCredentialWrites}
	if policy.StrictCredentialWrites {
		zapLogger.Info("Strict credential writes enabled: create and delete follow the read rule.")
	}

	services := api.Services{
		Auth:        core.NewAuthService(store.Users, hasher, tokens, zapLogger),
		Credentials: core.NewCredentialService(store, policy, zapLogger),
		Directory:   core.NewDirectoryService(store, listingCache, appConfig.ListingCacheTTL, policy, zapLogger),
		Membership:  core.NewMembershipService(store, policy, zapLogger),
	}

	if appConfig.SeedOnStart {
		if _, err := seed.Run(initCtx, store, hasher, zapLogger); err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to seed the store", zap.Error(err))
		}
		services.Directory.InvalidateListings(initCtx)
	}

	// --- 5. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
	zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))

	api.SetupRoutes(router, zapLogger, services)

	// --- 6. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 7. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
		return
	}
	zapLogger.Info("Server exiting gracefully.")
}
