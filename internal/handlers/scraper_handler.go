package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/services"
)

type ScraperHandler struct {
	Service *services.ScraperService

	// APISecret gates the detailed health view. Job endpoints are gated by
	// middleware before they reach this handler.
	APISecret string
}

// GetJob hands the calling worker its next scrape target, or job:null when
// every assigned city is still cooling down.
func (h *ScraperHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VPSID string `json:"vpsId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VPSID == "" {
		writeError(w, http.StatusBadRequest, "vpsId is required")
		return
	}

	assignment, err := h.Service.NextJob(r.Context(), req.VPSID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"job":     assignment,
	})
}

// ReportStatus records a worker's scrape outcome.
func (h *ScraperHandler) ReportStatus(w http.ResponseWriter, r *http.Request) {
	var report models.StatusReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if report.WorkerID == "" || report.JobID == "" || report.Status == "" {
		writeError(w, http.StatusBadRequest, "vpsId, jobId and status are required")
		return
	}

	if err := h.Service.ReportStatus(r.Context(), report); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "status recorded",
	})
}

// Health answers a basic liveness probe for anyone, and the full per-worker
// report when the caller presents the shared secret.
func (h *ScraperHandler) Health(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("x-api-secret")
	detailed := h.APISecret != "" &&
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.APISecret)) == 1

	report, err := h.Service.Health(r.Context(), detailed)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
