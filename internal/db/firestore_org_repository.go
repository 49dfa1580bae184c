package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/cooltech/internal/models"
)

const ousCollection = "ous"

// firestoreOURepository implements the OURepository interface using Firestore.
type firestoreOURepository struct {
	client *firestore.Client
}

func (r *firestoreOURepository) Create(ctx context.Context, ou *models.OU) error {
	col := r.client.Collection(ousCollection)
	ref := col.NewDoc()
	if ou.DivisionIDs == nil {
		ou.DivisionIDs = []string{}
	}
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(col.Where("name", "==", ou.Name).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("OU named '%s': %w", ou.Name, ErrDuplicate)
		}
		return tx.Create(ref, ou)
	})
	if err != nil {
		return fmt.Errorf("failed to create OU: %w", err)
	}
	ou.ID = ref.ID
	return nil
}

func (r *firestoreOURepository) GetByID(ctx context.Context, ouID string) (*models.OU, error) {
	ref, err := docRef(r.client.Collection(ousCollection), ouID)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("OU with ID '%s' not found: %w", ouID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get OU with ID '%s': %w", ouID, err)
	}
	return decodeOU(snap)
}

func (r *firestoreOURepository) FindByDivision(ctx context.Context, divisionID string) (*models.OU, error) {
	iter := r.client.Collection(ousCollection).Where("divisions", "array-contains", divisionID).Limit(1).Documents(ctx)
	defer iter.Stop()
	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("OU owning division '%s' not found: %w", divisionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query OU by division: %w", err)
	}
	return decodeOU(doc)
}

func (r *firestoreOURepository) List(ctx context.Context) ([]*models.OU, error) {
	iter := r.client.Collection(ousCollection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	ous := make([]*models.OU, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate OUs: %w", err)
		}
		ou, err := decodeOU(doc)
		if err != nil {
			return nil, err
		}
		ous = append(ous, ou)
	}
	return ous, nil
}

// AddDivision uses ArrayUnion, which already has set semantics.
func (r *firestoreOURepository) AddDivision(ctx context.Context, ouID, divisionID string) error {
	ref, err := docRef(r.client.Collection(ousCollection), ouID)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, []firestore.Update{{Path: "divisions", Value: firestore.ArrayUnion(divisionID)}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("OU with ID '%s' not found: %w", ouID, ErrNotFound)
		}
		return fmt.Errorf("failed to attach division '%s' to OU '%s': %w", divisionID, ouID, err)
	}
	return nil
}

func (r *firestoreOURepository) DeleteAll(ctx context.Context) error {
	return deleteCollection(ctx, r.client, ousCollection)
}

func decodeOU(snap *firestore.DocumentSnapshot) (*models.OU, error) {
	var ou models.OU
	if err := snap.DataTo(&ou); err != nil {
		return nil, fmt.Errorf("failed to decode OU data for ID '%s': %w", snap.Ref.ID, err)
	}
	ou.ID = snap.Ref.ID
	return &ou, nil
}
