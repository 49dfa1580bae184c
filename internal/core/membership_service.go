package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/models"
)

// membershipService implements the MembershipService interface.
type membershipService struct {
	store  *db.Store
	policy Policy
	logger *zap.Logger
}

// NewMembershipService creates a new MembershipService instance.
func NewMembershipService(store *db.Store, policy Policy, logger *zap.Logger) MembershipService {
	return &membershipService{store: store, policy: policy, logger: logger}
}

func (s *membershipService) authorize(principal Principal, action Action) error {
	if r := s.policy.Evaluate(principal, action, nil); !r.Allowed() {
		return deniedError(r)
	}
	return nil
}

func (s *membershipService) requireUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *membershipService) requireOU(ctx context.Context, ouID string) (*models.OU, error) {
	ou, err := s.store.OUs.GetByID(ctx, ouID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOUNotFound
		}
		return nil, fmt.Errorf("failed to load OU: %w", err)
	}
	return ou, nil
}

func divisionError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrDivisionNotFound
	}
	return fmt.Errorf("failed to update division membership: %w", err)
}

func (s *membershipService) ListUsers(ctx context.Context, principal Principal) ([]*models.User, error) {
	if err := s.authorize(principal, ActionListUsers); err != nil {
		return nil, err
	}
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// AssignUserToOU adds the user to every division under the OU.
func (s *membershipService) AssignUserToOU(ctx context.Context, principal Principal, userID, ouID string) (*models.OU, error) {
	if err := s.authorize(principal, ActionManageMembership); err != nil {
		return nil, err
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ou, err := s.requireOU(ctx, ouID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Divisions.AddEmployeeToDivisions(ctx, ou.DivisionIDs, userID); err != nil {
		return nil, divisionError(err)
	}
	s.logger.Info("User assigned to OU",
		zap.String("userID", userID), zap.String("ouID", ouID), zap.Int("divisions", len(ou.DivisionIDs)))
	return ou, nil
}

// RemoveUserFromOU removes the user from every division under the OU.
func (s *membershipService) RemoveUserFromOU(ctx context.Context, principal Principal, userID, ouID string) error {
	if err := s.authorize(principal, ActionManageMembership); err != nil {
		return err
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	ou, err := s.requireOU(ctx, ouID)
	if err != nil {
		return err
	}
	if err := s.store.Divisions.RemoveEmployeeFromDivisions(ctx, ou.DivisionIDs, userID); err != nil {
		return divisionError(err)
	}
	s.logger.Info("User removed from OU",
		zap.String("userID", userID), zap.String("ouID", ouID), zap.Int("divisions", len(ou.DivisionIDs)))
	return nil
}

func (s *membershipService) AssignUserToDivision(ctx context.Context, principal Principal, userID, divisionID string) error {
	if err := s.authorize(principal, ActionManageMembership); err != nil {
		return err
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	changed, err := s.store.Divisions.AddEmployee(ctx, divisionID, userID)
	if err != nil {
		return divisionError(err)
	}
	s.logger.Info("User assigned to division",
		zap.String("userID", userID), zap.String("divisionID", divisionID), zap.Bool("changed", changed))
	return nil
}

func (s *membershipService) RemoveUserFromDivision(ctx context.Context, principal Principal, userID, divisionID string) error {
	if err := s.authorize(principal, ActionManageMembership); err != nil {
		return err
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	changed, err := s.store.Divisions.RemoveEmployee(ctx, divisionID, userID)
	if err != nil {
		return divisionError(err)
	}
	s.logger.Info("User removed from division",
		zap.String("userID", userID), zap.String("divisionID", divisionID), zap.Bool("changed", changed))
	return nil
}

// ChangeUserRole overwrites the role and returns the updated user.
func (s *membershipService) ChangeUserRole(ctx context.Context, principal Principal, userID, role string) (*models.User, error) {
	if err := s.authorize(principal, ActionChangeRole); err != nil {
		return nil, err
	}
	newRole, err := models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.Users.UpdateRole(ctx, userID, newRole); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to change role: %w", err)
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User role changed", zap.String("userID", userID), zap.String("role", string(newRole)))
	return user, nil
}
