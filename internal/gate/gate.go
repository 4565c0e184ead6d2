// Package gate implements the per-request authorization chain guarding
// protected routes: session, then clinic, then plan. Every failing branch is
// terminal (a redirect); there are no retries and no state beyond the user row.
package gate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"clinicd/internal/domain"
	"clinicd/internal/middleware"
	"clinicd/internal/subscription"
)

// Paths configures the redirect targets and the plan-exempt allow-list.
type Paths struct {
	Login      string
	Onboarding string
	PlanSelect string
	// PlanExempt lists path prefixes reachable without a plan, so users can
	// still reach billing and clinic creation to get one.
	PlanExempt []string
}

// DefaultPaths matches the web client's routes.
func DefaultPaths() Paths {
	return Paths{
		Login:      "/login",
		Onboarding: "/onboarding/clinic",
		PlanSelect: "/billing/plans",
		PlanExempt: []string{"/v1/billing", "/v1/clinics", "/v1/me"},
	}
}

// Gate short-circuits unauthorized requests before the handlers run.
type Gate struct {
	users   domain.UserRepository
	clinics domain.ClinicRepository
	trial   *subscription.TrialManager
	paths   Paths
	logger  zerolog.Logger
}

func New(users domain.UserRepository, clinics domain.ClinicRepository, trial *subscription.TrialManager, paths Paths, logger zerolog.Logger) *Gate {
	return &Gate{users: users, clinics: clinics, trial: trial, paths: paths, logger: logger}
}

// Protect runs the check sequence on every request it wraps.
//
//  1. no session → login
//  2. no clinic → onboarding (skipped on the onboarding flow itself)
//  3. first visit trial grant, best effort
//  4. no plan and route not plan-exempt → plan selection
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := middleware.UserIDFromContext(ctx)
		if userID == "" {
			http.Redirect(w, r, g.paths.Login, http.StatusFound)
			return
		}

		if !g.onOnboarding(r.URL.Path) {
			if _, err := g.clinics.GetByOwner(ctx, userID); err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					// Fail closed: an unreadable tenant is treated like a
					// missing one, not like a pass.
					g.logger.Error().Err(err).Str("user_id", userID).Msg("gate: clinic lookup failed")
				}
				http.Redirect(w, r, g.paths.Onboarding, http.StatusFound)
				return
			}
		}

		// First authenticated visit provisions the trial. Failure here must
		// not block the page; the user just lands on plan selection instead.
		if _, err := g.trial.SetupTrial(ctx, userID); err != nil {
			g.logger.Error().Err(err).Str("user_id", userID).Msg("gate: trial setup failed")
		}

		user, err := g.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Session points at a deleted account.
				http.Redirect(w, r, g.paths.Login, http.StatusFound)
				return
			}
			g.logger.Error().Err(err).Str("user_id", userID).Msg("gate: user lookup failed")
			if !g.planExempt(r.URL.Path) {
				http.Redirect(w, r, g.paths.PlanSelect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !user.HasPlan() && !g.planExempt(r.URL.Path) {
			http.Redirect(w, r, g.paths.PlanSelect, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// onOnboarding exempts the routes a user without a clinic needs in order to
// get one, plus their own profile.
func (g *Gate) onOnboarding(path string) bool {
	return strings.HasPrefix(path, g.paths.Onboarding) ||
		strings.HasPrefix(path, "/v1/clinics") ||
		strings.HasPrefix(path, "/v1/me")
}

func (g *Gate) planExempt(path string) bool {
	for _, prefix := range g.paths.PlanExempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
