package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/cooltech/internal/crypto"
	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/models"
)

// orgFixture is two OUs: OU1 holds D1 and D2, OU2 holds D3. orphan belongs to
// no OU.
type orgFixture struct {
	store      *db.Store
	ou1, ou2   *models.OU
	d1, d2, d3 *models.Division
	orphan     *models.Division

	admin, manager, member, outsider *models.User
}

func (f *orgFixture) principal(u *models.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

func newOrgFixture(t *testing.T) *orgFixture {
	t.Helper()
	ctx := context.Background()
	f := &orgFixture{store: db.NewMemoryStore()}

	mkDivision := func(name string) *models.Division {
		d := &models.Division{Name: name, Credentials: []models.Credential{
			{ID: name + "-cred", Name: "GitHub", URL: "https://github.com", UserName: "x", Password: "y", Description: "z"},
		}}
		if err := f.store.Divisions.Create(ctx, d); err != nil {
			t.Fatalf("Create division: %v", err)
		}
		return d
	}
	f.d1 = mkDivision("Finance - News management")
	f.d2 = mkDivision("IT - News management")
	f.d3 = mkDivision("Finance - Software reviews")
	f.orphan = mkDivision("Orphan")

	mkOU := func(name string, ds ...*models.Division) *models.OU {
		ou := &models.OU{Name: name}
		for _, d := range ds {
			ou.DivisionIDs = append(ou.DivisionIDs, d.ID)
		}
		if err := f.store.OUs.Create(ctx, ou); err != nil {
			t.Fatalf("Create OU: %v", err)
		}
		return ou
	}
	f.ou1 = mkOU("News management", f.d1, f.d2)
	f.ou2 = mkOU("Software reviews", f.d3)

	mkUser := func(email string, role models.Role) *models.User {
		u := &models.User{Email: email, FirstName: "F", LastName: "L", PasswordHash: "h", Role: role}
		if err := f.store.Users.Create(ctx, u); err != nil {
			t.Fatalf("Create user: %v", err)
		}
		return u
	}
	f.admin = mkUser("admin@example.com", models.RoleAdmin)
	f.manager = mkUser("manager@example.com", models.RoleManagement)
	f.member = mkUser("member@example.com", models.RoleNormal)
	f.outsider = mkUser("outsider@example.com", models.RoleNormal)

	for _, d := range []*models.Division{f.d1, f.orphan} {
		if _, err := f.store.Divisions.AddEmployee(ctx, d.ID, f.member.ID); err != nil {
			t.Fatalf("AddEmployee: %v", err)
		}
	}
	return f
}

func newTestAuthService(t *testing.T, store *db.Store, now func() time.Time) AuthService {
	t.Helper()
	tokens := crypto.NewTokenIssuer("test-secret", time.Hour)
	if now != nil {
		tokens = tokens.WithClock(now)
	}
	return NewAuthService(store.Users, crypto.NewPasswordHasher(bcrypt.MinCost), tokens, zaptest.NewLogger(t))
}

// mapCache is an in-process cache.Cache that counts hits.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
	hits    int
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]string)} }

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *mapCache) Close() error { return nil }
