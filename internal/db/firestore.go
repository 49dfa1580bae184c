package db

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/example/cooltech/internal/config"
)

// InitFirestore initializes the Firebase Admin SDK and returns its Firestore client.
// It uses credentials and project ID from the provided appConfig.
func InitFirestore(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*firestore.Client, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("InitFirestore: appConfig cannot be nil")
	}

	var opts []option.ClientOption
	switch {
	case appConfig.GoogleApplicationCredentials != "":
		if _, err := os.Stat(appConfig.GoogleApplicationCredentials); os.IsNotExist(err) {
			logger.Warn("Credentials file in GOOGLE_APPLICATION_CREDENTIALS does not exist",
				zap.String("path", appConfig.GoogleApplicationCredentials))
		}
		opts = append(opts, option.WithCredentialsFile(appConfig.GoogleApplicationCredentials))
		logger.Info("Initializing Firebase with credentials file")
	case appConfig.FirebaseServiceAccountJSONBase64 != "":
		decodedJSON, err := base64.StdEncoding.DecodeString(appConfig.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FirebaseServiceAccountJSONBase64: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decodedJSON))
		logger.Info("Initializing Firebase with Base64 encoded service account JSON")
	default:
		logger.Info("Initializing Firebase using Application Default Credentials (ADC)")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: appConfig.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}
	return client, nil
}

// NewFirestoreStore wires the Firestore repositories onto client.
func NewFirestoreStore(client *firestore.Client) *Store {
	return &Store{
		Users:     &firestoreUserRepository{client: client},
		OUs:       &firestoreOURepository{client: client},
		Divisions: &firestoreDivisionRepository{client: client},
		Close:     client.Close,
	}
}

// docRef guards against ids that would make the client build an invalid path.
func docRef(col *firestore.CollectionRef, id string) (*firestore.DocumentRef, error) {
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%s document '%s' not found: %w", col.ID, id, ErrNotFound)
	}
	return col.Doc(id), nil
}

func docRefs(col *firestore.CollectionRef, ids []string) ([]*firestore.DocumentRef, error) {
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		ref, err := docRef(col, id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func deleteCollection(ctx context.Context, client *firestore.Client, name string) error {
	iter := client.Collection(name).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to iterate %s for deletion: %w", name, err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", name, doc.Ref.ID, err)
		}
	}
}
