package handlers

import (
	"errors"
	"net/http"

	"clinicd/internal/domain"
	"clinicd/internal/subscription"
)

// SubscriptionStatus reports the access verdict for an arbitrary user id. It
// is unauthenticated on purpose: server-side renderers and support tooling ask
// about users they do not hold a session for. The verdict leaks nothing beyond
// plan shape.
func (a *App) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		a.error(w, http.StatusBadRequest, "missing_user_id", "userId query parameter is required")
		return
	}

	access, err := a.Access.Evaluate(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("status: evaluate failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not evaluate subscription")
		return
	}

	a.json(w, http.StatusOK, access)
}

// Me returns the session user's profile together with the same access verdict
// the status endpoint computes, so clients need a single call after sign-in.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("me: load failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load profile")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"id":     user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"access": subscription.CheckAccess(user),
	})
}
