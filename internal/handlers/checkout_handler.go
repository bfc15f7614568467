package handlers

import (
	"encoding/json"
	"net/http"

	"autoHunterBack/internal/services"
)

type CheckoutHandler struct {
	Service *services.CheckoutService
}

// CreateCheckoutSession starts a provider-hosted subscription checkout.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           string `json:"userId"`
		Plan             string `json:"plan"`
		OrganizationName string `json:"organizationName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	session, err := h.Service.CreateCheckoutSession(r.Context(), UIDFromContext(r.Context()), req.UserID, req.Plan, req.OrganizationName)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

// CreatePortalSession opens the billing provider's self-service portal.
func (h *CheckoutHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
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

	session, err := h.Service.CreatePortalSession(r.Context(), UIDFromContext(r.Context()), req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": session.URL})
}

// CreateUpgradeSession changes the plan on an existing subscription in place.
func (h *CheckoutHandler) CreateUpgradeSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"userId"`
		NewPlan     string `json:"newPlan"`
		CurrentPlan string `json:"currentPlan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.NewPlan == "" {
		writeError(w, http.StatusBadRequest, "userId and newPlan are required")
		return
	}

	sub, err := h.Service.CreateUpgradeSession(r.Context(), UIDFromContext(r.Context()), req.UserID, req.NewPlan, req.CurrentPlan)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "subscription updated to " + req.NewPlan,
		"subscriptionId": sub.ID,
	})
}
