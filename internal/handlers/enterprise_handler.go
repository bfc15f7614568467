package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"autoHunterBack/internal/services"
)

// maxLogoSize bounds organization logo uploads.
const maxLogoSize = 5 << 20

type EnterpriseHandler struct {
	Service *services.EnterpriseService
}

// ManageUsers reconciles seat billing after a membership change.
func (h *EnterpriseHandler) ManageUsers(w http.ResponseWriter, r *http.Request) {
	// UserID names the member whose add/remove prompted the call; the seat
	// math recounts actual members rather than trusting it.
	var req struct {
		Action         string `json:"action"`
		OrganizationID string `json:"organizationId"`
		UserID         string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrganizationID == "" {
		writeError(w, http.StatusBadRequest, "organizationId is required")
		return
	}

	change, err := h.Service.ManageUsers(r.Context(), UIDFromContext(r.Context()), req.OrganizationID, req.Action)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"currentUsers":    change.CurrentUsers,
		"additionalUsers": change.AdditionalUsers,
	})
}

// UploadLogo accepts a multipart logo upload for an organization.
func (h *EnterpriseHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get(":id")
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "organization id is required")
		return
	}

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "logo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxLogoSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read logo file")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".svg", ".webp":
	default:
		writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}
	fileName := fmt.Sprintf("%s_%s%s", orgID, uuid.New().String(), ext)

	logoURL, err := h.Service.SetLogo(r.Context(), UIDFromContext(r.Context()), orgID, data, fileName)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"logoUrl": logoURL})
}
