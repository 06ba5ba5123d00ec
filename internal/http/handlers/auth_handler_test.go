package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/handlers"
	"github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/http/request"
	"github.com/trailborn/tours-api/internal/platform/auth"
	"github.com/trailborn/tours-api/pkg/config"
)

// ---------- Mocks ----------

type mockUserRepo struct {
	byID    map[int64]*domain.User
	byEmail map[string]*domain.User
	nextID  int64

	resetTokens   map[int64]string // user -> token hash
	resetExpires  map[int64]time.Time
	clearedTokens []int64
	passwordSet   map[int64]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:         map[int64]*domain.User{},
		byEmail:      map[string]*domain.User{},
		nextID:       1,
		resetTokens:  map[int64]string{},
		resetExpires: map[int64]time.Time{},
		passwordSet:  map[int64]string{},
	}
}

func (m *mockUserRepo) add(u *domain.User) *domain.User {
	u.ID = m.nextID
	m.nextID++
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if _, exists := m.byEmail[u.Email]; exists {
		return nil, domain.ErrDuplicate
	}
	return m.add(u), nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) Find(_ context.Context, _ request.ListOptions) ([]domain.User, error) {
	return nil, nil
}

func (m *mockUserRepo) UpdateByID(_ context.Context, id int64, _ *domain.UserPatch) (*domain.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, id int64) error {
	delete(m.byID, id)
	return nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id int64, req *domain.UpdateMeRequest) (*domain.User, error) {
	u := m.byID[id]
	if u != nil && req.Name != nil {
		u.Name = *req.Name
	}
	return u, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.passwordSet[id] = passwordHash
	if u := m.byID[id]; u != nil {
		u.PasswordHash = passwordHash
	}
	delete(m.resetTokens, id)
	delete(m.resetExpires, id)
	return nil
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id int64, tokenHash string, expires time.Time) error {
	m.resetTokens[id] = tokenHash
	m.resetExpires[id] = expires
	return nil
}

func (m *mockUserRepo) ClearResetToken(_ context.Context, id int64) error {
	m.clearedTokens = append(m.clearedTokens, id)
	delete(m.resetTokens, id)
	delete(m.resetExpires, id)
	return nil
}

func (m *mockUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	for id, hash := range m.resetTokens {
		if hash == tokenHash && m.resetExpires[id].After(time.Now()) {
			return m.byID[id], nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id int64) error {
	if u := m.byID[id]; u != nil {
		u.Active = false
		delete(m.byID, id)
		delete(m.byEmail, u.Email)
	}
	return nil
}

type mockMailer struct {
	welcomes  []string
	resetURLs []string
	sendErr   error
}

func (m *mockMailer) SendWelcome(toEmail, _, _ string) error {
	m.welcomes = append(m.welcomes, toEmail)
	return m.sendErr
}

func (m *mockMailer) SendPasswordReset(toEmail, _, resetURL string) error {
	m.resetURLs = append(m.resetURLs, resetURL)
	return m.sendErr
}

// ---------- Fixture ----------

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Auth.JWTSecret = "handler-test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.ResetTokenTTL = 10 * time.Minute
	cfg.App.BaseURL = "http://localhost:8080"
	return cfg
}

type fixture struct {
	repo   *mockUserRepo
	mail   *mockMailer
	cfg    *config.Config
	router chi.Router
}

func newFixture() *fixture {
	repo := newMockUserRepo()
	mail := &mockMailer{}
	cfg := testConfig()

	api := &handlers.API{
		Auth:    handlers.NewAuthHandler(repo, mail, nil, cfg),
		Users:   handlers.NewUsersHandler(repo),
		Session: middleware.NewSession(cfg.Auth.JWTSecret, repo),
	}

	r := chi.NewRouter()
	r.Mount("/", api.Routes())
	return &fixture{repo: repo, mail: mail, cfg: cfg, router: r}
}

func (f *fixture) addUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("CreateHash: %v", err)
	}
	return f.repo.add(&domain.User{Name: "Leo", Email: email, PasswordHash: hash, Active: true})
}

func (f *fixture) do(t *testing.T, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// ---------- Tests ----------

func TestSignup(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/users/signup",
		`{"name":"Leo","email":"Leo@Example.com","password":"pass1234","passwordConfirm":"pass1234"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Token string          `json:"token"`
			User  json.RawMessage `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Token == "" {
		t.Error("expected a session token")
	}
	if strings.Contains(string(body.Data.User), "pass1234") ||
		strings.Contains(string(body.Data.User), "password") {
		t.Errorf("response leaks password material: %s", body.Data.User)
	}

	// Email is normalized before storage.
	if _, ok := f.repo.byEmail["leo@example.com"]; !ok {
		t.Error("email was not lowercased")
	}
	if len(f.mail.welcomes) != 1 {
		t.Errorf("welcomes sent = %d, want 1", len(f.mail.welcomes))
	}

	// Session cookie is set.
	cookies := rec.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie must be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("expected a session cookie")
	}
}

func TestSignupPasswordMismatch(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/users/signup",
		`{"name":"Leo","email":"leo@example.com","password":"pass1234","passwordConfirm":"other999"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(f.repo.byID) != 0 {
		t.Error("no user should be created")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture()
	f.addUser(t, "leo@example.com", "pass1234")

	rec := f.do(t, http.MethodPost, "/api/v1/users/signup",
		`{"name":"Leo","email":"leo@example.com","password":"pass1234","passwordConfirm":"pass1234"}`, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture()
	f.addUser(t, "leo@example.com", "pass1234")

	rec := f.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"leo@example.com","password":"pass1234"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture()
	f.addUser(t, "leo@example.com", "pass1234")

	rec := f.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"leo@example.com","password":"wrong999"}`, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"nobody@example.com","password":"pass1234"}`, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "incorrect email or password") {
		t.Errorf("error should not reveal whether the account exists: %s", rec.Body.String())
	}
}

func TestLogoutOverwritesCookie(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/users/logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var sentinel *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			sentinel = c
		}
	}
	if sentinel == nil {
		t.Fatal("expected logout cookie")
	}
	if sentinel.Value != "loggedout" {
		t.Errorf("cookie value = %q", sentinel.Value)
	}
	if sentinel.Expires.After(time.Now().Add(time.Minute)) {
		t.Error("logout cookie should expire almost immediately")
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")

	rec := f.do(t, http.MethodPost, "/api/v1/users/forgotPassword",
		`{"email":"leo@example.com"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.mail.resetURLs) != 1 {
		t.Fatalf("reset mails = %d, want 1", len(f.mail.resetURLs))
	}

	// The emailed URL carries the plaintext token; the store holds its hash.
	parts := strings.Split(f.mail.resetURLs[0], "/")
	plaintext := parts[len(parts)-1]
	if f.repo.resetTokens[u.ID] == plaintext {
		t.Fatal("store must hold the hash, not the plaintext token")
	}
	if f.repo.resetTokens[u.ID] != auth.HashResetToken(plaintext) {
		t.Fatal("stored hash does not match the emailed token")
	}

	rec = f.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+plaintext,
		`{"password":"newpass99","passwordConfirm":"newpass99"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := f.repo.passwordSet[u.ID]; !ok {
		t.Error("password was not updated")
	}

	// Token is single use.
	rec = f.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+plaintext,
		`{"password":"again1234","passwordConfirm":"again1234"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reuse status = %d, want 400", rec.Code)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/users/forgotPassword",
		`{"email":"nobody@example.com"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestForgotPasswordMailFailureRollsBackToken(t *testing.T) {
	f := newFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")
	f.mail.sendErr = errors.New("smtp down")

	rec := f.do(t, http.MethodPost, "/api/v1/users/forgotPassword",
		`{"email":"leo@example.com"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if _, ok := f.repo.resetTokens[u.ID]; ok {
		t.Error("reset token must be cleared when the email fails")
	}
	if len(f.repo.clearedTokens) != 1 || f.repo.clearedTokens[0] != u.ID {
		t.Errorf("cleared = %+v", f.repo.clearedTokens)
	}
}

func TestResetPasswordBadToken(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPatch, "/api/v1/users/resetPassword/bogus",
		`{"password":"newpass99","passwordConfirm":"newpass99"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateMyPassword(t *testing.T) {
	f := newFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")
	token, err := auth.Issue(u.ID, u.Email, u.Role, f.cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	bearer := map[string]string{"Authorization": "Bearer " + token}

	// Wrong current password.
	rec := f.do(t, http.MethodPatch, "/api/v1/users/updateMyPassword",
		`{"passwordCurrent":"wrong999","password":"newpass99","passwordConfirm":"newpass99"}`, bearer)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// Correct current password.
	rec = f.do(t, http.MethodPatch, "/api/v1/users/updateMyPassword",
		`{"passwordCurrent":"pass1234","password":"newpass99","passwordConfirm":"newpass99"}`, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if _, ok := f.repo.passwordSet[u.ID]; !ok {
		t.Error("password was not updated")
	}
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	f := newFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")
	token, err := auth.Issue(u.ID, u.Email, u.Role, f.cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	bearer := map[string]string{"Authorization": "Bearer " + token}

	rec := f.do(t, http.MethodPatch, "/api/v1/users/updateMe",
		`{"name":"New Name","password":"sneaky999"}`, bearer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "updateMyPassword") {
		t.Errorf("error should point at the password route: %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPatch, "/api/v1/users/updateMe", `{"name":"New Name"}`, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if f.repo.byID[u.ID].Name != "New Name" {
		t.Errorf("name = %q", f.repo.byID[u.ID].Name)
	}
}

func TestDeleteMe(t *testing.T) {
	f := newFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")
	token, err := auth.Issue(u.ID, u.Email, u.Role, f.cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := f.do(t, http.MethodDelete, "/api/v1/users/deleteMe", "",
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, ok := f.repo.byID[u.ID]; ok {
		t.Error("deactivated user should not resolve anymore")
	}
}

func TestAdminCreateUserIsRefused(t *testing.T) {
	f := newFixture()
	admin := f.repo.add(&domain.User{Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin, Active: true})
	token, err := auth.Issue(admin.ID, admin.Email, admin.Role, f.cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/users/", `{"name":"X"}`,
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/signup") {
		t.Errorf("error should direct to signup: %s", rec.Body.String())
	}
}
