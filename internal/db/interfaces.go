package db

import (
	"context"
	"errors"

	"github.com/example/cooltech/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique attribute (email, OU name, division name) is already taken.
	ErrDuplicate = errors.New("document already exists")
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	// Create stores user and assigns user.ID.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByIDs returns the users that exist among ids, in the order of ids.
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, userID string, role models.Role) error
	DeleteAll(ctx context.Context) error
}

// OURepository defines the interface for organizational unit storage operations.
type OURepository interface {
	// Create stores ou and assigns ou.ID.
	Create(ctx context.Context, ou *models.OU) error
	GetByID(ctx context.Context, ouID string) (*models.OU, error)
	// FindByDivision returns the OU whose division list contains divisionID.
	FindByDivision(ctx context.Context, divisionID string) (*models.OU, error)
	List(ctx context.Context) ([]*models.OU, error)
	// AddDivision attaches divisionID to the OU if it is not attached yet.
	AddDivision(ctx context.Context, ouID, divisionID string) error
	DeleteAll(ctx context.Context) error
}

// DivisionRepository defines the interface for division storage operations.
// Every mutating method is atomic with respect to the division document, so
// concurrent callers never overwrite each other's changes.
type DivisionRepository interface {
	// Create stores division and assigns division.ID.
	Create(ctx context.Context, division *models.Division) error
	GetByID(ctx context.Context, divisionID string) (*models.Division, error)
	// GetByIDs returns the divisions that exist among ids, in the order of ids.
	GetByIDs(ctx context.Context, ids []string) ([]*models.Division, error)
	List(ctx context.Context) ([]*models.Division, error)

	// AddEmployee adds userID to the employee set. The bool reports whether the set changed.
	AddEmployee(ctx context.Context, divisionID, userID string) (bool, error)
	// RemoveEmployee removes userID from the employee set. The bool reports whether the set changed.
	RemoveEmployee(ctx context.Context, divisionID, userID string) (bool, error)
	// AddEmployeeToDivisions adds userID to every listed division in one storage call.
	AddEmployeeToDivisions(ctx context.Context, divisionIDs []string, userID string) error
	// RemoveEmployeeFromDivisions removes userID from every listed division in one storage call.
	RemoveEmployeeFromDivisions(ctx context.Context, divisionIDs []string, userID string) error

	// AddCredentials appends creds to the division's credential list.
	AddCredentials(ctx context.Context, divisionID string, creds ...models.Credential) error
	// UpdateCredential applies patch to the credential and returns its new state.
	// ErrNotFound covers both a missing division and a missing credential; use
	// GetByID to tell them apart.
	UpdateCredential(ctx context.Context, divisionID, credentialID string, patch models.CredentialPatch) (*models.Credential, error)
	// RemoveCredential deletes the credential. ErrNotFound as for UpdateCredential.
	RemoveCredential(ctx context.Context, divisionID, credentialID string) error

	DeleteAll(ctx context.Context) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Users     UserRepository
	OUs       OURepository
	Divisions DivisionRepository

	// Close releases the backend's connections.
	Close func() error
}
