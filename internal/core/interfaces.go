package core

import (
	"context"

	"github.com/example/cooltech/internal/models"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID string
	Role   models.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// AuthService defines registration, login and token authentication.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	// Login returns a signed token binding the user's id and role.
	Login(ctx context.Context, email, password string) (string, error)
	// Authenticate resolves a token to the principal it was issued to.
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// MembershipService mutates the User, Division and OU relationships. Every
// operation is admin-only.
type MembershipService interface {
	ListUsers(ctx context.Context, principal Principal) ([]*models.User, error)
	AssignUserToOU(ctx context.Context, principal Principal, userID, ouID string) (*models.OU, error)
	RemoveUserFromOU(ctx context.Context, principal Principal, userID, ouID string) error
	AssignUserToDivision(ctx context.Context, principal Principal, userID, divisionID string) error
	RemoveUserFromDivision(ctx context.Context, principal Principal, userID, divisionID string) error
	ChangeUserRole(ctx context.Context, principal Principal, userID, role string) (*models.User, error)
}

// CredentialService defines credential operations scoped to a division.
type CredentialService interface {
	// ListCredentials returns the division with its credential list emptied
	// when the principal may not read it.
	ListCredentials(ctx context.Context, principal Principal, divisionID string) (*models.DivisionView, error)
	AddCredential(ctx context.Context, principal Principal, divisionID string, req models.CreateCredentialRequest) (*models.DivisionView, error)
	UpdateCredential(ctx context.Context, principal Principal, divisionID, credentialID string, patch models.CredentialPatch) (*models.Credential, error)
	DeleteCredential(ctx context.Context, principal Principal, divisionID, credentialID string) error
}

// DirectoryService lists the org structure.
type DirectoryService interface {
	ListOUs(ctx context.Context) ([]models.OUSummary, error)
	ListDivisions(ctx context.Context) ([]models.DivisionSummary, error)
	// OrgChart nests every OU's divisions with their employees. Admin-only.
	OrgChart(ctx context.Context, principal Principal) ([]models.OUStaff, error)
	// InvalidateListings drops cached listings after the org structure changes.
	InvalidateListings(ctx context.Context)
}
