// Package seed wipes a store and loads the reference data set used for local
// development and demos.
package seed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/crypto"
	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/models"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "Password123"

var (
	ouNames = []string{"News management", "Software reviews", "Hardware reviews", "Opinion publishing"}

	divisionBases = []string{
		"Finance", "IT", "Writing", "Development", "HR",
		"Operations", "Cleaning", "Catering", "Logistics", "Fraud monitoring",
	}

	sampleCredentials = []models.Credential{
		{Name: "Netflix", URL: "https://www.netflix.com", UserName: "mynetflix", Password: "Password123", Description: "Netflix login details"},
		{Name: "Gmail", URL: "https://mail.google.com", UserName: "myemail", Password: "Email123", Description: "Gmail login details"},
		{Name: "AWS", URL: "https://aws.amazon.com", UserName: "myaws", Password: "Aws123", Description: "AWS login details"},
		{Name: "GitHub", URL: "https://github.com", UserName: "mygithub", Password: "GitHub123", Description: "GitHub login details"},
		{Name: "Facebook", URL: "https://www.facebook.com", UserName: "myfacebook", Password: "Facebook123", Description: "Facebook login details"},
	}

	// staff are spread one per division over the first OU.
	staff = []models.User{
		{Email: "manager@example.com", FirstName: "Manager", LastName: "User", Role: models.RoleManagement},
		{Email: "user1@example.com", FirstName: "User1", LastName: "One", Role: models.RoleNormal},
		{Email: "user2@example.com", FirstName: "User2", LastName: "Two", Role: models.RoleNormal},
		{Email: "user3@example.com", FirstName: "User3", LastName: "Three", Role: models.RoleNormal},
	}

	admin = models.User{Email: "admin@example.com", FirstName: "Admin", LastName: "User", Role: models.RoleAdmin}
)

// Fixture is what Run created.
type Fixture struct {
	OUs       []*models.OU
	Divisions []*models.Division
	Users     []*models.User
	Admin     *models.User
}

// DivisionName returns the seeded name of a division.
func DivisionName(base, ou string) string {
	return base + " - " + ou
}

// Run deletes every user, OU and division in store and loads the data set.
func Run(ctx context.Context, store *db.Store, hasher *crypto.PasswordHasher, logger *zap.Logger) (*Fixture, error) {
	if err := store.Users.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear users: %w", err)
	}
	if err := store.OUs.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear OUs: %w", err)
	}
	if err := store.Divisions.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear divisions: %w", err)
	}

	fx := &Fixture{}
	for _, ouName := range ouNames {
		ou := &models.OU{Name: ouName}
		for _, base := range divisionBases {
			division := &models.Division{Name: DivisionName(base, ouName), Credentials: freshCredentials()}
			if err := store.Divisions.Create(ctx, division); err != nil {
				return nil, fmt.Errorf("failed to create division %q: %w", division.Name, err)
			}
			fx.Divisions = append(fx.Divisions, division)
			ou.DivisionIDs = append(ou.DivisionIDs, division.ID)
		}
		if err := store.OUs.Create(ctx, ou); err != nil {
			return nil, fmt.Errorf("failed to create OU %q: %w", ouName, err)
		}
		fx.OUs = append(fx.OUs, ou)
	}

	hash, err := hasher.Hash(DefaultPassword)
	if err != nil {
		return nil, err
	}

	for i := range staff {
		user := staff[i]
		user.PasswordHash = hash
		if err := store.Users.Create(ctx, &user); err != nil {
			return nil, fmt.Errorf("failed to create user %q: %w", user.Email, err)
		}
		fx.Users = append(fx.Users, &user)
	}
	adminUser := admin
	adminUser.PasswordHash = hash
	if err := store.Users.Create(ctx, &adminUser); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	fx.Admin = &adminUser

	all := make([]string, 0, len(fx.Divisions))
	for _, d := range fx.Divisions {
		all = append(all, d.ID)
	}
	if err := store.Divisions.AddEmployeeToDivisions(ctx, all, adminUser.ID); err != nil {
		return nil, fmt.Errorf("failed to assign admin to every division: %w", err)
	}

	first := fx.OUs[0].DivisionIDs
	for i, user := range fx.Users {
		if i >= len(first) {
			break
		}
		if _, err := store.Divisions.AddEmployee(ctx, first[i], user.ID); err != nil {
			return nil, fmt.Errorf("failed to assign %q to a division: %w", user.Email, err)
		}
	}

	logger.Info("Seed data loaded",
		zap.Int("ous", len(fx.OUs)), zap.Int("divisions", len(fx.Divisions)), zap.Int("users", len(fx.Users)+1))
	return fx, nil
}

func freshCredentials() []models.Credential {
	creds := make([]models.Credential, len(sampleCredentials))
	for i, c := range sampleCredentials {
		c.ID = uuid.NewString()
		creds[i] = c
	}
	return creds
}
