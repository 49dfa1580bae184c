package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/cooltech/internal/models"
)

func seedDivision(t *testing.T, store *Store, name string) *models.Division {
	t.Helper()
	d := &models.Division{Name: name}
	if err := store.Divisions.Create(context.Background(), d); err != nil {
		t.Fatalf("Create division %q: %v", name, err)
	}
	return d
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u := &models.User{Email: "ada@example.com", FirstName: "Ada", PasswordHash: "hash", Role: models.RoleNormal}
	if err := store.Users.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("Create did not assign an ID")
	}

	dup := &models.User{Email: "ADA@example.com"}
	if err := store.Users.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create duplicate email: got %v, want ErrDuplicate", err)
	}

	got, err := store.Users.GetByEmail(ctx, "ada@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail = %+v, %v", got, err)
	}

	if err := store.Users.UpdateRole(ctx, u.ID, models.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	got, _ = store.Users.GetByID(ctx, u.ID)
	if got.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}

	// Returned values are copies.
	got.Email = "changed@example.com"
	again, _ := store.Users.GetByID(ctx, u.ID)
	if again.Email != "ada@example.com" {
		t.Errorf("stored user mutated through returned pointer")
	}

	if _, err := store.Users.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID missing: got %v, want ErrNotFound", err)
	}
	if err := store.Users.UpdateRole(ctx, "missing", models.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRole missing: got %v, want ErrNotFound", err)
	}

	users, err := store.Users.GetByIDs(ctx, []string{"missing", u.ID})
	if err != nil || len(users) != 1 || users[0].ID != u.ID {
		t.Errorf("GetByIDs = %v, %v", users, err)
	}
}

func TestMemoryOURepository(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := seedDivision(t, store, "Finance")

	ou := &models.OU{Name: "News management"}
	if err := store.OUs.Create(ctx, ou); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.OUs.Create(ctx, &models.OU{Name: "News management"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create duplicate name: got %v", err)
	}

	if _, err := store.OUs.FindByDivision(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByDivision before attach: got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.OUs.AddDivision(ctx, ou.ID, d.ID); err != nil {
			t.Fatalf("AddDivision: %v", err)
		}
	}
	owner, err := store.OUs.FindByDivision(ctx, d.ID)
	if err != nil || owner.ID != ou.ID {
		t.Fatalf("FindByDivision = %+v, %v", owner, err)
	}
	if len(owner.DivisionIDs) != 1 {
		t.Errorf("AddDivision twice produced %d entries", len(owner.DivisionIDs))
	}
}

func TestMemoryDivisionEmployees(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := seedDivision(t, store, "Finance")

	changed, err := store.Divisions.AddEmployee(ctx, d.ID, "u1")
	if err != nil || !changed {
		t.Fatalf("AddEmployee = %v, %v", changed, err)
	}
	changed, err = store.Divisions.AddEmployee(ctx, d.ID, "u1")
	if err != nil || changed {
		t.Fatalf("AddEmployee again = %v, %v; want no change", changed, err)
	}
	changed, err = store.Divisions.RemoveEmployee(ctx, d.ID, "u1")
	if err != nil || !changed {
		t.Fatalf("RemoveEmployee = %v, %v", changed, err)
	}
	changed, err = store.Divisions.RemoveEmployee(ctx, d.ID, "u1")
	if err != nil || changed {
		t.Fatalf("RemoveEmployee again = %v, %v; want no change", changed, err)
	}
	if _, err := store.Divisions.AddEmployee(ctx, "missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddEmployee missing division: got %v", err)
	}
}

func TestMemoryMultiDivisionMembershipIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := seedDivision(t, store, "A")
	b := seedDivision(t, store, "B")

	err := store.Divisions.AddEmployeeToDivisions(ctx, []string{a.ID, "missing", b.ID}, "u1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	for _, id := range []string{a.ID, b.ID} {
		d, _ := store.Divisions.GetByID(ctx, id)
		if d.HasEmployee("u1") {
			t.Errorf("division %s modified by failed batch", d.Name)
		}
	}

	if err := store.Divisions.AddEmployeeToDivisions(ctx, []string{a.ID, b.ID}, "u1"); err != nil {
		t.Fatalf("AddEmployeeToDivisions: %v", err)
	}
	if err := store.Divisions.AddEmployeeToDivisions(ctx, []string{a.ID, b.ID}, "u1"); err != nil {
		t.Fatalf("AddEmployeeToDivisions again: %v", err)
	}
	for _, id := range []string{a.ID, b.ID} {
		d, _ := store.Divisions.GetByID(ctx, id)
		if len(d.EmployeeIDs) != 1 {
			t.Errorf("division %s employees = %v, want [u1]", d.Name, d.EmployeeIDs)
		}
	}

	if err := store.Divisions.RemoveEmployeeFromDivisions(ctx, []string{a.ID, b.ID}, "u1"); err != nil {
		t.Fatalf("RemoveEmployeeFromDivisions: %v", err)
	}
	for _, id := range []string{a.ID, b.ID} {
		d, _ := store.Divisions.GetByID(ctx, id)
		if d.HasEmployee("u1") {
			t.Errorf("division %s still has u1", d.Name)
		}
	}
}

func TestMemoryCredentials(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := seedDivision(t, store, "Finance")

	cred := models.Credential{ID: "c1", Name: "Bank", URL: "https://bank.example", UserName: "fin", Password: "s3cret"}
	if err := store.Divisions.AddCredentials(ctx, d.ID, cred); err != nil {
		t.Fatalf("AddCredentials: %v", err)
	}

	pw := "n3w"
	empty := ""
	updated, err := store.Divisions.UpdateCredential(ctx, d.ID, "c1", models.CredentialPatch{Password: &pw, Name: &empty})
	if err != nil {
		t.Fatalf("UpdateCredential: %v", err)
	}
	if updated.Password != "n3w" || updated.Name != "Bank" || updated.ID != "c1" {
		t.Errorf("UpdateCredential = %+v", updated)
	}

	if _, err := store.Divisions.UpdateCredential(ctx, d.ID, "missing", models.CredentialPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCredential missing credential: got %v", err)
	}
	if _, err := store.Divisions.UpdateCredential(ctx, "missing", "c1", models.CredentialPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCredential missing division: got %v", err)
	}

	if err := store.Divisions.RemoveCredential(ctx, d.ID, "c1"); err != nil {
		t.Fatalf("RemoveCredential: %v", err)
	}
	if err := store.Divisions.RemoveCredential(ctx, d.ID, "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveCredential twice: got %v", err)
	}
	got, _ := store.Divisions.GetByID(ctx, d.ID)
	if len(got.Credentials) != 0 {
		t.Errorf("credentials = %v, want none", got.Credentials)
	}
}

func TestMemoryConcurrentAddCredentials(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := seedDivision(t, store, "Finance")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := models.Credential{ID: fmt.Sprintf("c%d", i), Name: "n"}
			if err := store.Divisions.AddCredentials(ctx, d.ID, c); err != nil {
				t.Errorf("AddCredentials: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := store.Divisions.GetByID(ctx, d.ID)
	if len(got.Credentials) != n {
		t.Fatalf("got %d credentials, want %d", len(got.Credentials), n)
	}
	seen := make(map[string]bool, n)
	for _, c := range got.Credentials {
		seen[c.ID] = true
	}
	if len(seen) != n {
		t.Errorf("lost credentials: %d distinct ids", len(seen))
	}
}
