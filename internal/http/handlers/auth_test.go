package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"clinicd/internal/domain"
	"clinicd/internal/middleware"
)

func authApp(users *fakeUsers) *App {
	return &App{Logger: zerolog.Nop(), Users: users, JWTSecret: "test-secret"}
}

func TestRegisterCreatesAccountWithoutPlan(t *testing.T) {
	users := newFakeUsers()
	app := authApp(users)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		strings.NewReader(`{"name":"Ana","email":"Ana@Clinica.dev","password":"correct horse"}`))
	rec := httptest.NewRecorder()
	app.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.User.Email != "ana@clinica.dev" {
		t.Fatalf("email = %q, want lowercased", body.User.Email)
	}

	claims, err := middleware.VerifyJWT("test-secret", body.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Sub != body.User.ID {
		t.Fatalf("claims.Sub = %q, want %q", claims.Sub, body.User.ID)
	}

	stored := users.byID[body.User.ID]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.Plan != nil || stored.IsInTrial {
		t.Fatalf("new account got a plan at registration: %+v", stored)
	}
	if stored.PasswordHash == "correct horse" {
		t.Fatal("password stored in the clear")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newFakeUsers(&domain.User{ID: "u1", Email: "ana@clinica.dev"})
	app := authApp(users)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		strings.NewReader(`{"name":"Ana","email":"ana@clinica.dev","password":"correct horse"}`))
	rec := httptest.NewRecorder()
	app.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	app := authApp(newFakeUsers())

	for name, payload := range map[string]string{
		"bad email":      `{"name":"Ana","email":"not-an-email","password":"correct horse"}`,
		"short password": `{"name":"Ana","email":"ana@clinica.dev","password":"short"}`,
		"not json":       `{{{`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		app.Register(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := newFakeUsers(&domain.User{ID: "u1", Email: "ana@clinica.dev", PasswordHash: string(hash)})
	app := authApp(users)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"ana@clinica.dev","password":"correct horse"}`))
	rec := httptest.NewRecorder()
	app.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("no session cookie set")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	users := newFakeUsers(&domain.User{ID: "u1", Email: "ana@clinica.dev", PasswordHash: string(hash)})
	app := authApp(users)

	for name, payload := range map[string]string{
		"wrong password": `{"email":"ana@clinica.dev","password":"wrong"}`,
		"unknown email":  `{"email":"ghost@clinica.dev","password":"correct horse"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		app.Login(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}
