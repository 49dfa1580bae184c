package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/models"
)

// credentialService implements the CredentialService interface.
type credentialService struct {
	store  *db.Store
	policy Policy
	logger *zap.Logger
}

// NewCredentialService creates a new CredentialService instance.
func NewCredentialService(store *db.Store, policy Policy, logger *zap.Logger) CredentialService {
	return &credentialService{store: store, policy: policy, logger: logger}
}

func (s *credentialService) loadDivision(ctx context.Context, divisionID string) (*models.Division, error) {
	division, err := s.store.Divisions.GetByID(ctx, divisionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to load division: %w", err)
	}
	return division, nil
}

// evaluate builds the division scope, loading the owning OU's divisions only
// when the decision can depend on them.
func (s *credentialService) evaluate(ctx context.Context, principal Principal, action Action, division *models.Division) (Result, error) {
	scope := &DivisionScope{Division: division}
	if s.policy.needsOUScope(principal, action, division) {
		ou, err := s.store.OUs.FindByDivision(ctx, division.ID)
		switch {
		case errors.Is(err, db.ErrNotFound):
			// No owning OU. Only direct membership or admin applies.
		case err != nil:
			return Result{}, fmt.Errorf("failed to load OU of division: %w", err)
		default:
			siblings, err := s.store.Divisions.GetByIDs(ctx, ou.DivisionIDs)
			if err != nil {
				return Result{}, fmt.Errorf("failed to load OU divisions: %w", err)
			}
			scope.OUDivisions = siblings
		}
	}
	return s.policy.Evaluate(principal, action, scope), nil
}

// view projects division for the principal, emptying the credential list
// when the read rule denies.
func (s *credentialService) view(ctx context.Context, principal Principal, division *models.Division) (*models.DivisionView, error) {
	result, err := s.evaluate(ctx, principal, ActionReadCredentials, division)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users.GetByIDs(ctx, division.EmployeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load division employees: %w", err)
	}

	v := &models.DivisionView{
		ID:          division.ID,
		Name:        division.Name,
		Credentials: []models.Credential{},
		Employees:   make([]models.Employee, 0, len(users)),
	}
	if result.Allowed() && len(division.Credentials) > 0 {
		v.Credentials = division.Credentials
	}
	for _, u := range users {
		v.Employees = append(v.Employees, u.AsEmployee())
	}
	return v, nil
}

func (s *credentialService) ListCredentials(ctx context.Context, principal Principal, divisionID string) (*models.DivisionView, error) {
	division, err := s.loadDivision(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, principal, division)
}

// AddCredential appends a credential with a fresh id and returns the
// division as the caller may see it.
func (s *credentialService) AddCredential(ctx context.Context, principal Principal, divisionID string, req models.CreateCredentialRequest) (*models.DivisionView, error) {
	division, err := s.loadDivision(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	result, err := s.evaluate(ctx, principal, ActionCreateCredential, division)
	if err != nil {
		return nil, err
	}
	if !result.Allowed() {
		return nil, deniedError(result)
	}

	cred := models.Credential{
		ID:          uuid.NewString(),
		Name:        req.Name,
		URL:         req.URL,
		UserName:    req.UserName,
		Password:    req.Password,
		Description: req.Description,
	}
	if err := s.store.Divisions.AddCredentials(ctx, divisionID, cred); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to add credential: %w", err)
	}
	s.logger.Info("Credential added",
		zap.String("userID", principal.UserID), zap.String("divisionID", divisionID), zap.String("credentialID", cred.ID))

	division, err = s.loadDivision(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, principal, division)
}

// UpdateCredential applies patch. The role gate runs before any lookup, so a
// normal user is denied even for ids that do not exist.
func (s *credentialService) UpdateCredential(ctx context.Context, principal Principal, divisionID, credentialID string, patch models.CredentialPatch) (*models.Credential, error) {
	if r := s.policy.Evaluate(principal, ActionUpdateCredential, nil); !r.Allowed() {
		return nil, deniedError(r)
	}
	updated, err := s.store.Divisions.UpdateCredential(ctx, divisionID, credentialID, patch)
	if err != nil {
		return nil, s.credentialError(ctx, divisionID, err)
	}
	s.logger.Info("Credential updated",
		zap.String("userID", principal.UserID), zap.String("divisionID", divisionID), zap.String("credentialID", credentialID))
	return updated, nil
}

func (s *credentialService) DeleteCredential(ctx context.Context, principal Principal, divisionID, credentialID string) error {
	if s.policy.StrictCredentialWrites {
		division, err := s.loadDivision(ctx, divisionID)
		if err != nil {
			return err
		}
		result, err := s.evaluate(ctx, principal, ActionDeleteCredential, division)
		if err != nil {
			return err
		}
		if !result.Allowed() {
			return deniedError(result)
		}
	} else if r := s.policy.Evaluate(principal, ActionDeleteCredential, nil); !r.Allowed() {
		return deniedError(r)
	}

	if err := s.store.Divisions.RemoveCredential(ctx, divisionID, credentialID); err != nil {
		return s.credentialError(ctx, divisionID, err)
	}
	s.logger.Info("Credential deleted",
		zap.String("userID", principal.UserID), zap.String("divisionID", divisionID), zap.String("credentialID", credentialID))
	return nil
}

// credentialError tells a missing division apart from a missing credential.
func (s *credentialService) credentialError(ctx context.Context, divisionID string, err error) error {
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("failed to modify credential: %w", err)
	}
	if _, lookupErr := s.store.Divisions.GetByID(ctx, divisionID); errors.Is(lookupErr, db.ErrNotFound) {
		return ErrDivisionNotFound
	}
	return ErrCredentialNotFound
}
