package handlers

import (
	"net/http"
	"time"
)

// Healthz reports process liveness. It does not touch the database; a
// deadlocked pool should fail readiness probes at the LB, not flap liveness.
func (a *App) Healthz(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
