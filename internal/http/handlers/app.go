// Package handlers holds the HTTP handlers. Every handler hangs off App so
// tests can stand up an App with fakes and call handlers directly.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"clinicd/internal/aichat"
	"clinicd/internal/billing"
	"clinicd/internal/domain"
	"clinicd/internal/infra"
	"clinicd/internal/middleware"
	"clinicd/internal/subscription"
)

// TrialSweeper runs one expiration sweep. Satisfied by *subscription.Sweeper.
type TrialSweeper interface {
	Sweep(ctx context.Context) (subscription.SweepResult, error)
}

// AccessEvaluator resolves a user's access verdict. Satisfied by
// *subscription.Evaluator.
type AccessEvaluator interface {
	Evaluate(ctx context.Context, userID string) (subscription.Access, error)
}

// ChatCompleter answers a conversation. Satisfied by *aichat.Client.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []aichat.Message) (string, error)
}

// App bundles the dependencies the handlers need.
type App struct {
	SQL     infra.SQLExecutor
	Logger  zerolog.Logger
	Users   domain.UserRepository
	Clinics domain.ClinicRepository

	Access  AccessEvaluator
	Sweeper TrialSweeper
	Billing    *billing.Service
	ChatClient ChatCompleter

	JWTSecret  string
	CronSecret string
	AppBaseURL string
}

func (a *App) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.Error().Err(err).Msg("write response")
	}
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}

// currentUserID returns the session user id or writes a 401 and returns "".
func (a *App) currentUserID(w http.ResponseWriter, r *http.Request) string {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	return userID
}

// callerScope resolves the session user's clinic and plan entitlements. The
// route gate has already redirected callers without a clinic or plan, so the
// error branches here fire only for direct API calls that skipped the browser
// flow.
func (a *App) callerScope(w http.ResponseWriter, r *http.Request, userID string) (clinicID string, ent domain.Entitlements, ok bool) {
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("scope: load user failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not resolve account")
		return "", domain.Entitlements{}, false
	}
	if user.Plan == nil {
		a.error(w, http.StatusForbidden, "plan_required", "select a plan to use this feature")
		return "", domain.Entitlements{}, false
	}

	clinic, err := a.Clinics.GetByOwner(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusForbidden, "onboarding_required", "register a clinic first")
			return "", domain.Entitlements{}, false
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("scope: load clinic failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not resolve clinic")
		return "", domain.Entitlements{}, false
	}

	return clinic.ID, user.Plan.Entitlements(), true
}
