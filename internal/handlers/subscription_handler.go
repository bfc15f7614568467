package handlers

import (
	"encoding/json"
	"net/http"

	"autoHunterBack/internal/services"
)

type SubscriptionHandler struct {
	Service *services.SubscriptionService
}

// SyncSubscription pulls the provider's current state for the caller and
// writes it back, recovering from missed webhooks.
func (h *SubscriptionHandler) SyncSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	res, err := h.Service.SyncSubscription(r.Context(), UIDFromContext(r.Context()), req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	body := map[string]any{
		"synced":  res.Synced,
		"message": res.Message,
	}
	if res.Synced {
		body["message"] = "subscription synced"
		body["subscription"] = map[string]any{
			"customerId":       res.CustomerID,
			"subscriptionId":   res.SubscriptionID,
			"status":           res.Status,
			"currentPeriodEnd": res.CurrentPeriodEnd,
		}
	}
	writeJSON(w, http.StatusOK, body)
}
