package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/cooltech/internal/config"
)

// Open returns the Store selected by appConfig.StoreDriver.
func Open(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*Store, error) {
	switch appConfig.StoreDriver {
	case config.DriverMemory:
		logger.Info("Using in-memory store; data is lost on exit")
		return NewMemoryStore(), nil
	case config.DriverFirestore:
		client, err := InitFirestore(ctx, appConfig, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Firestore store initialized", zap.String("projectID", appConfig.FirebaseProjectID))
		return NewFirestoreStore(client), nil
	case config.DriverMongo:
		store, err := NewMongoStore(ctx, appConfig.MongoURI, appConfig.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info("MongoDB store initialized", zap.String("database", appConfig.MongoDatabase))
		return store, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", appConfig.StoreDriver)
}
