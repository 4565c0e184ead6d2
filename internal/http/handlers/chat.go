package handlers

import (
	"net/http"

	"clinicd/internal/aichat"
)

type chatRequest struct {
	Messages []aichat.Message `json:"messages"`
}

// Chat proxies a conversation to the assistant. The feature is gated on the
// plan's AIChat entitlement; lower tiers get a 403 with an upgrade hint rather
// than a silent empty answer.
func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(w, r)
	if userID == "" {
		return
	}
	_, ent, ok := a.callerScope(w, r, userID)
	if !ok {
		return
	}
	if !ent.AIChat {
		a.error(w, http.StatusForbidden, "upgrade_required", "the assistant is available on the profissional plan")
		return
	}
	if a.ChatClient == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "the assistant is not configured")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		a.error(w, http.StatusBadRequest, "empty_conversation", "at least one message is required")
		return
	}

	reply, err := a.ChatClient.Complete(r.Context(), req.Messages)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("chat: completion failed")
		a.error(w, http.StatusBadGateway, "provider_error", "the assistant did not answer")
		return
	}

	a.json(w, http.StatusOK, map[string]string{"reply": reply})
}
