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

const usersCollection = "users"

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// Create adds a new user document with an auto-generated ID. Email uniqueness
// is checked inside the same transaction as the write.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	col := r.client.Collection(usersCollection)
	ref := col.NewDoc()
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(col.Where("email", "==", user.Email).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("user with email '%s': %w", user.Email, ErrDuplicate)
		}
		return tx.Create(ref, user)
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = ref.ID
	return nil
}

// GetByID retrieves a user document from Firestore by its ID.
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	ref, err := docRef(r.client.Collection(usersCollection), userID)
	if err != nil {
		return nil, err
	}
	docSnap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	iter := r.client.Collection(usersCollection).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()
	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("user with email '%s' not found: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return decodeUser(doc)
}

func (r *firestoreUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	refs, err := docRefs(r.client.Collection(usersCollection), ids)
	if err != nil {
		return nil, err
	}
	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	users := make([]*models.User, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		user, err := decodeUser(snap)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *firestoreUserRepository) List(ctx context.Context) ([]*models.User, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	users := make([]*models.User, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}
		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *firestoreUserRepository) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	ref, err := docRef(r.client.Collection(usersCollection), userID)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, []firestore.Update{{Path: "role", Value: string(role)}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to update role of user '%s': %w", userID, err)
	}
	return nil
}

func (r *firestoreUserRepository) DeleteAll(ctx context.Context) error {
	return deleteCollection(ctx, r.client, usersCollection)
}

func decodeUser(snap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", snap.Ref.ID, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}
