package handlers

import (
	"net/http"
	"strings"
	"time"
)

// CronCheckSubscriptions runs the expiration sweep. The scheduler authorizes
// with `Authorization: Bearer <CRON_SECRET>`. An unset secret is a deployment
// fault and fails closed with a 500 so the scheduler's alerting notices,
// instead of a 401 that reads like a caller mistake.
func (a *App) CronCheckSubscriptions(w http.ResponseWriter, r *http.Request) {
	if a.CronSecret == "" {
		a.Logger.Error().Msg("cron: CRON_SECRET not configured, refusing sweep")
		a.json(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "cron secret not configured",
		})
		return
	}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token != a.CronSecret {
		a.json(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "unauthorized",
		})
		return
	}

	res, err := a.Sweeper.Sweep(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("cron: sweep aborted")
		a.json(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	a.Logger.Info().Int("processed", res.Processed).Int("failed", res.Failed).Msg("cron: sweep complete")
	a.json(w, http.StatusOK, map[string]any{
		"success":        true,
		"processedUsers": res.Processed,
		"failedUsers":    res.Failed,
	})
}

// CronPing answers scheduler health checks without touching any state.
func (a *App) CronPing(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"message":   "subscription check endpoint is alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
