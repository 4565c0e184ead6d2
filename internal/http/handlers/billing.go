package handlers

import (
	"errors"
	"io"
	"net/http"

	"clinicd/internal/billing"
	"clinicd/internal/domain"
)

// ListPlans returns the purchasable catalog. Trial variants are listed too so
// the pricing page can show what the trial includes, flagged as not
// purchasable.
func (a *App) ListPlans(w http.ResponseWriter, r *http.Request) {
	type planEntry struct {
		Code          string `json:"code"`
		Tier          string `json:"tier"`
		Trial         bool   `json:"trial"`
		Purchasable   bool   `json:"purchasable"`
		MaxPatients   int    `json:"maxPatients"`
		MaxStaffRoles int    `json:"maxStaffRoles"`
		AIChat        bool   `json:"aiChat"`
	}

	plans := domain.Plans()
	out := make([]planEntry, 0, len(plans))
	for _, p := range plans {
		ent := p.Entitlements()
		out = append(out, planEntry{
			Code:          string(p),
			Tier:          p.Tier(),
			Trial:         ent.Trial,
			Purchasable:   !ent.Trial,
			MaxPatients:   ent.MaxPatients,
			MaxStaffRoles: ent.MaxStaffRoles,
			AIChat:        ent.AIChat,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"plans": out})
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// Checkout creates a hosted checkout session for a paid plan and returns its
// URL for the browser to follow.
func (a *App) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil || plan.IsTrial() {
		a.error(w, http.StatusBadRequest, "invalid_plan", "plan is not purchasable")
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("billing: load user failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not start checkout")
		return
	}

	url, err := a.Billing.Checkout(r.Context(), user, plan,
		a.AppBaseURL+"/billing/success", a.AppBaseURL+"/billing/plans")
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("billing: checkout failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not start checkout")
		return
	}

	a.json(w, http.StatusOK, map[string]string{"url": url})
}

// StripeWebhook receives billing events. Signature verification happens before
// anything is parsed; a missing signing secret is a deployment fault and fails
// closed with a 500 rather than processing unverified payloads.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read payload")
		return
	}

	event, err := a.Billing.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrWebhookSecretMissing) {
			a.Logger.Error().Msg("billing: webhook secret not configured, refusing event")
			a.error(w, http.StatusInternalServerError, "internal", "webhook not configured")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
		return
	}

	if err := a.Billing.HandleEvent(r.Context(), event); err != nil {
		// A non-2xx makes Stripe retry with backoff, which is what we want for
		// transient database failures.
		a.Logger.Error().Err(err).Str("type", string(event.Type)).Msg("billing: event handling failed")
		a.error(w, http.StatusInternalServerError, "internal", "event handling failed")
		return
	}

	a.json(w, http.StatusOK, map[string]bool{"received": true})
}
