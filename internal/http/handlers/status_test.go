package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clinicd/internal/domain"
	"clinicd/internal/middleware"
	"clinicd/internal/subscription"
)

func statusApp(users *fakeUsers) *App {
	return &App{
		Logger: zerolog.Nop(),
		Users:  users,
		Access: subscription.NewEvaluator(users),
	}
}

func TestSubscriptionStatusRequiresUserID(t *testing.T) {
	app := statusApp(newFakeUsers())

	req := httptest.NewRequest(http.MethodGet, "/subscription/status", nil)
	rec := httptest.NewRecorder()
	app.SubscriptionStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubscriptionStatusUnknownUser(t *testing.T) {
	app := statusApp(newFakeUsers())

	req := httptest.NewRequest(http.MethodGet, "/subscription/status?userId=ghost", nil)
	rec := httptest.NewRecorder()
	app.SubscriptionStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubscriptionStatusTrialUser(t *testing.T) {
	plan := domain.PlanBasicoTrial
	end := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	app := statusApp(newFakeUsers(&domain.User{
		ID:           "u1",
		Email:        "ana@clinica.dev",
		Plan:         &plan,
		IsInTrial:    true,
		TrialEndDate: &end,
	}))

	req := httptest.NewRequest(http.MethodGet, "/subscription/status?userId=u1", nil)
	rec := httptest.NewRecorder()
	app.SubscriptionStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var access subscription.Access
	if err := json.Unmarshal(rec.Body.Bytes(), &access); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !access.HasAccess || !access.IsTrialUser {
		t.Fatalf("access = %+v, want trial access", access)
	}
	if access.Plan == nil || *access.Plan != domain.PlanBasicoTrial {
		t.Fatalf("plan = %v, want basico_trial", access.Plan)
	}
	if access.TrialEndsAt == nil || !access.TrialEndsAt.Equal(end) {
		t.Fatalf("trialEndsAt = %v, want %v", access.TrialEndsAt, end)
	}
}

func TestSubscriptionStatusNoPlan(t *testing.T) {
	app := statusApp(newFakeUsers(&domain.User{ID: "u1", Email: "ana@clinica.dev"}))

	req := httptest.NewRequest(http.MethodGet, "/subscription/status?userId=u1", nil)
	rec := httptest.NewRecorder()
	app.SubscriptionStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var access subscription.Access
	if err := json.Unmarshal(rec.Body.Bytes(), &access); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if access.HasAccess || access.IsTrialUser || access.Plan != nil {
		t.Fatalf("access = %+v, want denied", access)
	}
}

func TestMeRequiresSession(t *testing.T) {
	app := statusApp(newFakeUsers())

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMeReturnsProfileWithAccess(t *testing.T) {
	plan := domain.PlanProfissional
	app := statusApp(newFakeUsers(&domain.User{
		ID:    "u1",
		Email: "ana@clinica.dev",
		Name:  "Ana",
		Plan:  &plan,
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		ID     string              `json:"id"`
		Email  string              `json:"email"`
		Access subscription.Access `json:"access"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "u1" || body.Email != "ana@clinica.dev" {
		t.Fatalf("profile = %+v", body)
	}
	if !body.Access.HasAccess || body.Access.IsTrialUser {
		t.Fatalf("access = %+v, want paid access", body.Access)
	}
}
