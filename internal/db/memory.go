package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/example/cooltech/internal/models"
)

// memoryBackend keeps every collection behind one lock. Multi-division
// membership changes are therefore fully atomic.
type memoryBackend struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	ous       map[string]*models.OU
	divisions map[string]*models.Division
	// insertion order per collection, so listings are stable.
	userOrder     []string
	ouOrder       []string
	divisionOrder []string
}

// NewMemoryStore returns a Store backed by process memory.
func NewMemoryStore() *Store {
	b := &memoryBackend{
		users:     make(map[string]*models.User),
		ous:       make(map[string]*models.OU),
		divisions: make(map[string]*models.Division),
	}
	return &Store{
		Users:     &memoryUserRepository{b},
		OUs:       &memoryOURepository{b},
		Divisions: &memoryDivisionRepository{b},
		Close:     func() error { return nil },
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneOU(o *models.OU) *models.OU {
	c := *o
	c.DivisionIDs = slices.Clone(o.DivisionIDs)
	return &c
}

func cloneDivision(d *models.Division) *models.Division {
	c := *d
	c.Credentials = slices.Clone(d.Credentials)
	c.EmployeeIDs = slices.Clone(d.EmployeeIDs)
	return &c
}

type memoryUserRepository struct{ b *memoryBackend }

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, u := range r.b.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user with email '%s': %w", user.Email, ErrDuplicate)
		}
	}
	user.ID = uuid.NewString()
	r.b.users[user.ID] = cloneUser(user)
	r.b.userOrder = append(r.b.userOrder, user.ID)
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	u, ok := r.b.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	for _, u := range r.b.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user with email '%s' not found: %w", email, ErrNotFound)
}

func (r *memoryUserRepository) GetByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.b.users[id]; ok {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]*models.User, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	users := make([]*models.User, 0, len(r.b.userOrder))
	for _, id := range r.b.userOrder {
		users = append(users, cloneUser(r.b.users[id]))
	}
	return users, nil
}

func (r *memoryUserRepository) UpdateRole(_ context.Context, userID string, role models.Role) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	u, ok := r.b.users[userID]
	if !ok {
		return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
	}
	u.Role = role
	return nil
}

func (r *memoryUserRepository) DeleteAll(_ context.Context) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	r.b.users = make(map[string]*models.User)
	r.b.userOrder = nil
	return nil
}

type memoryOURepository struct{ b *memoryBackend }

func (r *memoryOURepository) Create(_ context.Context, ou *models.OU) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, o := range r.b.ous {
		if o.Name == ou.Name {
			return fmt.Errorf("OU named '%s': %w", ou.Name, ErrDuplicate)
		}
	}
	ou.ID = uuid.NewString()
	r.b.ous[ou.ID] = cloneOU(ou)
	r.b.ouOrder = append(r.b.ouOrder, ou.ID)
	return nil
}

func (r *memoryOURepository) GetByID(_ context.Context, ouID string) (*models.OU, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	o, ok := r.b.ous[ouID]
	if !ok {
		return nil, fmt.Errorf("OU with ID '%s' not found: %w", ouID, ErrNotFound)
	}
	return cloneOU(o), nil
}

func (r *memoryOURepository) FindByDivision(_ context.Context, divisionID string) (*models.OU, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	for _, id := range r.b.ouOrder {
		if o := r.b.ous[id]; o.HasDivision(divisionID) {
			return cloneOU(o), nil
		}
	}
	return nil, fmt.Errorf("OU owning division '%s' not found: %w", divisionID, ErrNotFound)
}

func (r *memoryOURepository) List(_ context.Context) ([]*models.OU, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	ous := make([]*models.OU, 0, len(r.b.ouOrder))
	for _, id := range r.b.ouOrder {
		ous = append(ous, cloneOU(r.b.ous[id]))
	}
	return ous, nil
}

func (r *memoryOURepository) AddDivision(_ context.Context, ouID, divisionID string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	o, ok := r.b.ous[ouID]
	if !ok {
		return fmt.Errorf("OU with ID '%s' not found: %w", ouID, ErrNotFound)
	}
	if !o.HasDivision(divisionID) {
		o.DivisionIDs = append(o.DivisionIDs, divisionID)
	}
	return nil
}

func (r *memoryOURepository) DeleteAll(_ context.Context) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	r.b.ous = make(map[string]*models.OU)
	r.b.ouOrder = nil
	return nil
}

type memoryDivisionRepository struct{ b *memoryBackend }

func (r *memoryDivisionRepository) Create(_ context.Context, division *models.Division) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, d := range r.b.divisions {
		if d.Name == division.Name {
			return fmt.Errorf("division named '%s': %w", division.Name, ErrDuplicate)
		}
	}
	division.ID = uuid.NewString()
	r.b.divisions[division.ID] = cloneDivision(division)
	r.b.divisionOrder = append(r.b.divisionOrder, division.ID)
	return nil
}

func (r *memoryDivisionRepository) GetByID(_ context.Context, divisionID string) (*models.Division, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	d, ok := r.b.divisions[divisionID]
	if !ok {
		return nil, fmt.Errorf("division with ID '%s' not found: %w", divisionID, ErrNotFound)
	}
	return cloneDivision(d), nil
}

func (r *memoryDivisionRepository) GetByIDs(_ context.Context, ids []string) ([]*models.Division, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	divisions := make([]*models.Division, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.b.divisions[id]; ok {
			divisions = append(divisions, cloneDivision(d))
		}
	}
	return divisions, nil
}

func (r *memoryDivisionRepository) List(_ context.Context) ([]*models.Division, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	divisions := make([]*models.Division, 0, len(r.b.divisionOrder))
	for _, id := range r.b.divisionOrder {
		divisions = append(divisions, cloneDivision(r.b.divisions[id]))
	}
	return divisions, nil
}

// lookup must be called with the lock held.
func (r *memoryDivisionRepository) lookup(divisionID string) (*models.Division, error) {
	d, ok := r.b.divisions[divisionID]
	if !ok {
		return nil, fmt.Errorf("division with ID '%s' not found: %w", divisionID, ErrNotFound)
	}
	return d, nil
}

func (r *memoryDivisionRepository) AddEmployee(_ context.Context, divisionID, userID string) (bool, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	d, err := r.lookup(divisionID)
	if err != nil {
		return false, err
	}
	if d.HasEmployee(userID) {
		return false, nil
	}
	d.EmployeeIDs = append(d.EmployeeIDs, userID)
	return true, nil
}

func (r *memoryDivisionRepository) RemoveEmployee(_ context.Context, divisionID, userID string) (bool, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	d, err := r.lookup(divisionID)
	if err != nil {
		return false, err
	}
	before := len(d.EmployeeIDs)
	d.EmployeeIDs = slices.DeleteFunc(d.EmployeeIDs, func(id string) bool { return id == userID })
	return len(d.EmployeeIDs) != before, nil
}

func (r *memoryDivisionRepository) AddEmployeeToDivisions(_ context.Context, divisionIDs []string, userID string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	// Validate first so a missing division leaves every document untouched.
	targets := make([]*models.Division, 0, len(divisionIDs))
	for _, id := range divisionIDs {
		d, err := r.lookup(id)
		if err != nil {
			return err
		}
		targets = append(targets, d)
	}
	for _, d := range targets {
		if !d.HasEmployee(userID) {
			d.EmployeeIDs = append(d.EmployeeIDs, userID)
		}
	}
	return nil
}

func (r *memoryDivisionRepository) RemoveEmployeeFromDivisions(_ context.Context, divisionIDs []string, userID string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	targets := make([]*models.Division, 0, len(divisionIDs))
	for _, id := range divisionIDs {
		d, err := r.lookup(id)
		if err != nil {
			return err
		}
		targets = append(targets, d)
	}
	for _, d := range targets {
		d.EmployeeIDs = slices.DeleteFunc(d.EmployeeIDs, func(id string) bool { return id == userID })
	}
	return nil
}

func (r *memoryDivisionRepository) AddCredentials(_ context.Context, divisionID string, creds ...models.Credential) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	d, err := r.lookup(divisionID)
	if err != nil {
		return err
	}
	d.Credentials = append(d.Credentials, creds...)
	return nil
}

func (r *memoryDivisionRepository) UpdateCredential(_ context.Context, divisionID, credentialID string, patch models.CredentialPatch) (*models.Credential, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	d, err := r.lookup(divisionID)
	if err != nil {
		return nil, err
	}
	i := d.CredentialIndex(credentialID)
	if i < 0 {
		return nil, fmt.Errorf("credential '%s' in division '%s' not found: %w", credentialID, divisionID, ErrNotFound)
	}
	patch.Apply(&d.Credentials[i])
	updated := d.Credentials[i]
	return &updated, nil
}

func (r *memoryDivisionRepository) RemoveCredential(_ context.Context, divisionID, credentialID string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	d, err := r.lookup(divisionID)
	if err != nil {
		return err
	}
	i := d.CredentialIndex(credentialID)
	if i < 0 {
		return fmt.Errorf("credential '%s' in division '%s' not found: %w", credentialID, divisionID, ErrNotFound)
	}
	d.Credentials = slices.Delete(d.Credentials, i, i+1)
	return nil
}

func (r *memoryDivisionRepository) DeleteAll(_ context.Context) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	r.b.divisions = make(map[string]*models.Division)
	r.b.divisionOrder = nil
	return nil
}
