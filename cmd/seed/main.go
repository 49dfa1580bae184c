// Command seed wipes the configured store and loads the reference data set.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/cooltech/internal/cache"
	"github.com/example/cooltech/internal/config"
	"github.com/example/cooltech/internal/core"
	"github.com/example/cooltech/internal/crypto"
	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/seed"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "maximum time to spend seeding")
	flag.Parse()

	var zapLogger *zap.Logger
	var err error
	if strings.ToLower(os.Getenv("GIN_MODE")) == "release" {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	if appConfig.StoreDriver == config.DriverMemory {
		zapLogger.Warn("Seeding the in-memory store has no lasting effect; set STORE_DRIVER to firestore or mongo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := db.Open(ctx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to the store", zap.Error(err))
	}
	defer store.Close()

	fx, err := seed.Run(ctx, store, crypto.NewPasswordHasher(appConfig.BcryptCost), zapLogger)
	if err != nil {
		zapLogger.Fatal("Seeding failed", zap.Error(err))
	}

	listingCache, err := cache.Open(ctx, cache.RedisConfig{
		Address:  appConfig.RedisAddr,
		Password: appConfig.RedisPassword,
		DB:       appConfig.RedisDB,
	}, zapLogger)
	if err != nil {
		zapLogger.Warn("Redis unavailable; cached listings expire on their own", zap.Error(err))
	} else {
		defer listingCache.Close()
		core.NewDirectoryService(store, listingCache, appConfig.ListingCacheTTL, core.Policy{}, zapLogger).InvalidateListings(ctx)
	}

	zapLogger.Info("Seeding complete",
		zap.Int("ous", len(fx.OUs)), zap.Int("divisions", len(fx.Divisions)), zap.String("admin", fx.Admin.Email))
}
