package db

import (
	"context"
	"fmt"
	"slices"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/cooltech/internal/models"
)

const divisionsCollection = "divisions"

// firestoreDivisionRepository implements the DivisionRepository interface using
// Firestore. Read-modify-write of a division always happens inside
// RunTransaction, which retries on contention instead of losing writes.
type firestoreDivisionRepository struct {
	client *firestore.Client
}

func (r *firestoreDivisionRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(divisionsCollection)
}

func (r *firestoreDivisionRepository) Create(ctx context.Context, division *models.Division) error {
	col := r.collection()
	ref := col.NewDoc()
	if division.Credentials == nil {
		division.Credentials = []models.Credential{}
	}
	if division.EmployeeIDs == nil {
		division.EmployeeIDs = []string{}
	}
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(col.Where("name", "==", division.Name).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("division named '%s': %w", division.Name, ErrDuplicate)
		}
		return tx.Create(ref, division)
	})
	if err != nil {
		return fmt.Errorf("failed to create division: %w", err)
	}
	division.ID = ref.ID
	return nil
}

func (r *firestoreDivisionRepository) GetByID(ctx context.Context, divisionID string) (*models.Division, error) {
	ref, err := docRef(r.collection(), divisionID)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("division with ID '%s' not found: %w", divisionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get division with ID '%s': %w", divisionID, err)
	}
	return decodeDivision(snap)
}

func (r *firestoreDivisionRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Division, error) {
	if len(ids) == 0 {
		return []*models.Division{}, nil
	}
	refs, err := docRefs(r.collection(), ids)
	if err != nil {
		return nil, err
	}
	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get divisions: %w", err)
	}
	divisions := make([]*models.Division, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		d, err := decodeDivision(snap)
		if err != nil {
			return nil, err
		}
		divisions = append(divisions, d)
	}
	return divisions, nil
}

func (r *firestoreDivisionRepository) List(ctx context.Context) ([]*models.Division, error) {
	iter := r.collection().OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	divisions := make([]*models.Division, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate divisions: %w", err)
		}
		d, err := decodeDivision(doc)
		if err != nil {
			return nil, err
		}
		divisions = append(divisions, d)
	}
	return divisions, nil
}

// mutate loads the division inside a transaction, lets fn compute the field
// updates and writes them back. fn may run more than once when the
// transaction is retried.
func (r *firestoreDivisionRepository) mutate(ctx context.Context, divisionID string, fn func(d *models.Division) ([]firestore.Update, error)) error {
	ref, err := docRef(r.collection(), divisionID)
	if err != nil {
		return err
	}
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("division with ID '%s' not found: %w", divisionID, ErrNotFound)
			}
			return err
		}
		d, err := decodeDivision(snap)
		if err != nil {
			return err
		}
		updates, err := fn(d)
		if err != nil || len(updates) == 0 {
			return err
		}
		return tx.Update(ref, updates)
	})
}

func (r *firestoreDivisionRepository) AddEmployee(ctx context.Context, divisionID, userID string) (bool, error) {
	var changed bool
	err := r.mutate(ctx, divisionID, func(d *models.Division) ([]firestore.Update, error) {
		changed = !d.HasEmployee(userID)
		if !changed {
			return nil, nil
		}
		return []firestore.Update{{Path: "employees", Value: firestore.ArrayUnion(userID)}}, nil
	})
	return changed, err
}

func (r *firestoreDivisionRepository) RemoveEmployee(ctx context.Context, divisionID, userID string) (bool, error) {
	var changed bool
	err := r.mutate(ctx, divisionID, func(d *models.Division) ([]firestore.Update, error) {
		changed = d.HasEmployee(userID)
		if !changed {
			return nil, nil
		}
		return []firestore.Update{{Path: "employees", Value: firestore.ArrayRemove(userID)}}, nil
	})
	return changed, err
}

// setEmployeeAcross applies one array transform to all divisions in a single
// transaction: either every division changes or none does.
func (r *firestoreDivisionRepository) setEmployeeAcross(ctx context.Context, divisionIDs []string, transform interface{}) error {
	if len(divisionIDs) == 0 {
		return nil
	}
	refs, err := docRefs(r.collection(), divisionIDs)
	if err != nil {
		return err
	}
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if !snap.Exists() {
				return fmt.Errorf("division with ID '%s' not found: %w", snap.Ref.ID, ErrNotFound)
			}
		}
		for _, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{{Path: "employees", Value: transform}}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *firestoreDivisionRepository) AddEmployeeToDivisions(ctx context.Context, divisionIDs []string, userID string) error {
	return r.setEmployeeAcross(ctx, divisionIDs, firestore.ArrayUnion(userID))
}

func (r *firestoreDivisionRepository) RemoveEmployeeFromDivisions(ctx context.Context, divisionIDs []string, userID string) error {
	return r.setEmployeeAcross(ctx, divisionIDs, firestore.ArrayRemove(userID))
}

func (r *firestoreDivisionRepository) AddCredentials(ctx context.Context, divisionID string, creds ...models.Credential) error {
	return r.mutate(ctx, divisionID, func(d *models.Division) ([]firestore.Update, error) {
		repo := append(slices.Clone(d.Credentials), creds...)
		return []firestore.Update{{Path: "repo", Value: repo}}, nil
	})
}

func (r *firestoreDivisionRepository) UpdateCredential(ctx context.Context, divisionID, credentialID string, patch models.CredentialPatch) (*models.Credential, error) {
	var updated models.Credential
	err := r.mutate(ctx, divisionID, func(d *models.Division) ([]firestore.Update, error) {
		i := d.CredentialIndex(credentialID)
		if i < 0 {
			return nil, fmt.Errorf("credential '%s' in division '%s' not found: %w", credentialID, divisionID, ErrNotFound)
		}
		patch.Apply(&d.Credentials[i])
		updated = d.Credentials[i]
		if patch.Empty() {
			return nil, nil
		}
		return []firestore.Update{{Path: "repo", Value: d.Credentials}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *firestoreDivisionRepository) RemoveCredential(ctx context.Context, divisionID, credentialID string) error {
	return r.mutate(ctx, divisionID, func(d *models.Division) ([]firestore.Update, error) {
		i := d.CredentialIndex(credentialID)
		if i < 0 {
			return nil, fmt.Errorf("credential '%s' in division '%s' not found: %w", credentialID, divisionID, ErrNotFound)
		}
		repo := slices.Delete(slices.Clone(d.Credentials), i, i+1)
		return []firestore.Update{{Path: "repo", Value: repo}}, nil
	})
}

func (r *firestoreDivisionRepository) DeleteAll(ctx context.Context) error {
	return deleteCollection(ctx, r.client, divisionsCollection)
}

func decodeDivision(snap *firestore.DocumentSnapshot) (*models.Division, error) {
	var d models.Division
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode division data for ID '%s': %w", snap.Ref.ID, err)
	}
	d.ID = snap.Ref.ID
	return &d, nil
}
