package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"autoHunterBack/internal/services"
)

type InvitationHandler struct {
	Service *services.EnterpriseService
}

// SendInvitation creates a pending invite and emails the link.
func (h *InvitationHandler) SendInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organizationId"`
		Email          string `json:"email"`
		Role           string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.OrganizationID == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "organizationId and a valid email are required")
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}

	inv, err := h.Service.SendInvitation(r.Context(), UIDFromContext(r.Context()), req.OrganizationID, req.Email, req.Role)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"invitationId": inv.ID,
		"email":        inv.Email,
		"role":         inv.Role,
		"expiresAt":    inv.ExpiresAt,
	})
}

// AcceptInvitation redeems an invite token for the authenticated user.
func (h *InvitationHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	inv, err := h.Service.AcceptInvitation(r.Context(), UIDFromContext(r.Context()), req.Token)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"organizationId": inv.OrganizationID,
		"role":           inv.Role,
	})
}
