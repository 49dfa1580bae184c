package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/cooltech/internal/core"
	"github.com/example/cooltech/internal/crypto"
	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/middleware"
	"github.com/example/cooltech/internal/seed"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *db.Store
	fx     *seed.Fixture
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := db.NewMemoryStore()
	hasher := crypto.NewPasswordHasher(bcrypt.MinCost)

	fx, err := seed.Run(context.Background(), store, hasher, logger)
	if err != nil {
		t.Fatalf("seed.Run: %v", err)
	}

	policy := core.Policy{}
	svc := Services{
		Auth:        core.NewAuthService(store.Users, hasher, crypto.NewTokenIssuer("test-secret", time.Hour), logger),
		Credentials: core.NewCredentialService(store, policy, logger),
		Directory:   core.NewDirectoryService(store, nil, time.Minute, policy, logger),
		Membership:  core.NewMembershipService(store, policy, logger),
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	SetupRoutes(router, logger, svc)
	return &testServer{router: router, store: store, fx: fx}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": seed.DefaultPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", email, w.Code, w.Body.String())
	}
	var resp TokenResponse
	decode(t, w, &resp)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	body := map[string]string{"email": "new@example.com", "firstname": "New", "lastname": "User", "password": "secret"}
	w := s.do(t, http.MethodPost, "/api/auth/register", "", body)
	expectStatus(t, w, http.StatusCreated)
	var user map[string]any
	decode(t, w, &user)
	if user["role"] != "normal" || user["email"] != "new@example.com" || user["id"] == "" {
		t.Errorf("user = %v", user)
	}
	if _, ok := user["password"]; ok {
		t.Error("register response leaks the password hash")
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/auth/register", "", body), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email"}), http.StatusBadRequest)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "secret"})
	expectStatus(t, w, http.StatusOK)

	for _, creds := range []map[string]string{
		{"email": "new@example.com", "password": "wrong"},
		{"email": "ghost@example.com", "password": "secret"},
	} {
		w = s.do(t, http.MethodPost, "/api/auth/login", "", creds)
		expectStatus(t, w, http.StatusBadRequest)
		var resp ErrorResponse
		decode(t, w, &resp)
		if resp.Message != "Invalid credentials" {
			t.Errorf("message = %q", resp.Message)
		}
	}
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/credentials/ous", "/api/credentials/divisions", "/api/users"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		expectStatus(t, w, http.StatusUnauthorized)
		var resp ErrorResponse
		decode(t, w, &resp)
		if resp.Message != "No token provided" {
			t.Errorf("%s message = %q", path, resp.Message)
		}
	}
	expectStatus(t, s.do(t, http.MethodGet, "/api/credentials/ous", "garbage", nil), http.StatusUnauthorized)
}

func TestListCredentialsRedaction(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "user1@example.com")

	sibling := s.fx.OUs[0].DivisionIDs[0]
	w := s.do(t, http.MethodGet, "/api/credentials/cred/"+sibling, token, nil)
	expectStatus(t, w, http.StatusOK)
	var view struct {
		ID        string            `json:"id"`
		Repo      []json.RawMessage `json:"repo"`
		Employees []map[string]any  `json:"employees"`
	}
	decode(t, w, &view)
	if len(view.Repo) != 5 {
		t.Errorf("sibling division repo = %d entries, want 5", len(view.Repo))
	}
	if len(view.Employees) == 0 {
		t.Error("employees not projected")
	}

	other := s.fx.OUs[1].DivisionIDs[0]
	w = s.do(t, http.MethodGet, "/api/credentials/cred/"+other, token, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"repo":[]`) {
		t.Errorf("other OU division not redacted: %s", w.Body.String())
	}

	expectStatus(t, s.do(t, http.MethodGet, "/api/credentials/cred/missing", token, nil), http.StatusNotFound)
}

func TestCredentialLifecycle(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, "user1@example.com")
	manager := s.login(t, "manager@example.com")
	division := s.fx.OUs[0].DivisionIDs[0]

	w := s.do(t, http.MethodPost, "/api/credentials/cred/"+division, user, map[string]string{
		"name": "GitHub", "url": "https://github.com", "userName": "x", "password": "y", "description": "z",
	})
	expectStatus(t, w, http.StatusCreated)
	var view struct {
		Repo []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"repo"`
	}
	decode(t, w, &view)
	if len(view.Repo) != 6 {
		t.Fatalf("repo = %d entries, want 6", len(view.Repo))
	}
	credID := view.Repo[5].ID
	path := "/api/credentials/cred/" + division + "/" + credID

	w = s.do(t, http.MethodPut, path, user, map[string]string{"name": "Hacked"})
	expectStatus(t, w, http.StatusBadRequest)
	var errResp ErrorResponse
	decode(t, w, &errResp)
	if errResp.Message != "Access denied" {
		t.Errorf("message = %q", errResp.Message)
	}

	w = s.do(t, http.MethodPut, path, manager, map[string]string{"name": "GitHub2", "url": ""})
	expectStatus(t, w, http.StatusOK)
	var updated struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	decode(t, w, &updated)
	if updated.ID != credID || updated.Name != "GitHub2" || updated.URL != "https://github.com" {
		t.Errorf("updated = %+v", updated)
	}

	expectStatus(t, s.do(t, http.MethodPut, "/api/credentials/cred/"+division+"/missing", manager, map[string]string{}), http.StatusNotFound)

	w = s.do(t, http.MethodDelete, path, user, nil)
	expectStatus(t, w, http.StatusOK)
	var msg MessageResponse
	decode(t, w, &msg)
	if msg.Message != "Credential deleted" {
		t.Errorf("message = %q", msg.Message)
	}
	w = s.do(t, http.MethodDelete, path, user, nil)
	expectStatus(t, w, http.StatusNotFound)
	decode(t, w, &errResp)
	if errResp.Message != "Credential not found" {
		t.Errorf("message = %q", errResp.Message)
	}
}

func TestListings(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "user2@example.com")

	w := s.do(t, http.MethodGet, "/api/credentials/ous", token, nil)
	expectStatus(t, w, http.StatusOK)
	var ous []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Divisions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"divisions"`
	}
	decode(t, w, &ous)
	if len(ous) != 4 || len(ous[0].Divisions) != 10 {
		t.Fatalf("ous = %+v", ous)
	}

	w = s.do(t, http.MethodGet, "/api/credentials/divisions", token, nil)
	expectStatus(t, w, http.StatusOK)
	var divisions []map[string]string
	decode(t, w, &divisions)
	if len(divisions) != 40 {
		t.Errorf("got %d divisions, want 40", len(divisions))
	}
	if _, ok := divisions[0]["repo"]; ok {
		t.Error("division listing includes credentials")
	}
}

func TestAdminOrgChart(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodGet, "/api/credentials/admin/users-ou-divisions", s.login(t, "manager@example.com"), nil), http.StatusForbidden)

	w := s.do(t, http.MethodGet, "/api/credentials/admin/users-ou-divisions", s.login(t, "admin@example.com"), nil)
	expectStatus(t, w, http.StatusOK)
	var chart []struct {
		OUName    string `json:"ouName"`
		Divisions []struct {
			DivisionName string           `json:"divisionName"`
			Employees    []map[string]any `json:"employees"`
		} `json:"divisions"`
	}
	decode(t, w, &chart)
	if len(chart) != 4 || chart[0].OUName != "News management" {
		t.Fatalf("chart = %+v", chart)
	}
	first := chart[0].Divisions[0]
	if first.DivisionName != seed.DivisionName("Finance", "News management") || len(first.Employees) != 2 {
		t.Errorf("first division = %+v", first)
	}
	for _, e := range first.Employees {
		if _, ok := e["password"]; ok {
			t.Error("employee projection leaks the password hash")
		}
	}
}

func TestUserAdministration(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@example.com")
	manager := s.login(t, "manager@example.com")
	target := s.fx.Users[3].ID
	ou := s.fx.OUs[1].ID
	division := s.fx.OUs[2].DivisionIDs[0]

	expectStatus(t, s.do(t, http.MethodGet, "/api/users", manager, nil), http.StatusForbidden)
	w := s.do(t, http.MethodGet, "/api/users", admin, nil)
	expectStatus(t, w, http.StatusOK)
	var users []map[string]any
	decode(t, w, &users)
	if len(users) != 5 {
		t.Errorf("got %d users, want 5", len(users))
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/users/"+target+"/ou/"+ou, manager, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPost, "/api/users/"+target+"/ou/"+ou, admin, nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, "/api/users/"+target+"/ou/missing", admin, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/users/"+target+"/ou/"+ou, admin, nil), http.StatusOK)

	expectStatus(t, s.do(t, http.MethodPost, "/api/users/"+target+"/division/"+division, admin, nil), http.StatusOK)
	d, _ := s.store.Divisions.GetByID(context.Background(), division)
	if !d.HasEmployee(target) {
		t.Error("user not added to division")
	}
	expectStatus(t, s.do(t, http.MethodDelete, "/api/users/"+target+"/division/"+division, admin, nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, "/api/users/missing/division/"+division, admin, nil), http.StatusNotFound)

	expectStatus(t, s.do(t, http.MethodPut, "/api/users/"+target+"/role", admin, map[string]string{"role": "superuser"}), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPut, "/api/users/"+target+"/role", manager, map[string]string{"role": "admin"}), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPut, "/api/users/"+target+"/role", admin, nil), http.StatusBadRequest)
	w = s.do(t, http.MethodPut, "/api/users/"+target+"/role", admin, map[string]string{"role": "management"})
	expectStatus(t, w, http.StatusOK)
	var changed map[string]any
	decode(t, w, &changed)
	if changed["role"] != "management" {
		t.Errorf("role = %v", changed["role"])
	}
}

func TestChangeRoleChecksAdminBeforeBody(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, "user1@example.com")
	target := s.fx.Users[3].ID
	path := "/api/users/" + target + "/role"

	tests := []struct {
		name string
		body any
	}{
		{"unknown role", map[string]string{"role": "superuser"}},
		{"empty body", nil},
		{"wrong type", map[string]int{"role": 5}},
		{"valid role", map[string]string{"role": "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPut, path, user, tt.body)
			expectStatus(t, w, http.StatusForbidden)
			var resp ErrorResponse
			decode(t, w, &resp)
			if resp.Message != "Access denied" {
				t.Errorf("message = %q, want %q", resp.Message, "Access denied")
			}
		})
	}

	u, err := s.store.Users.GetByID(context.Background(), target)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Role != s.fx.Users[3].Role {
		t.Errorf("role changed to %q by a non-admin", u.Role)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(t, http.MethodGet, "/health", "", nil), http.StatusOK)
}
