package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
	"autoHunterBack/internal/services"
)

// maxWebhookBody bounds how much of a webhook request gets read.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Service       *services.WebhookService
	WebhookSecret string
	Logger        *slog.Logger
}

// HandleStripeWebhook verifies the provider signature over the raw body and
// feeds the event to the ingestor. Signature and shape failures are 400s;
// downstream write failures are 500s so the provider redelivers.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	event, err := pay.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.WebhookSecret, pay.DefaultTolerance)
	if err != nil {
		h.Logger.Warn("webhook rejected", "op", "handlers.HandleStripeWebhook", "error", err)
		writeError(w, http.StatusBadRequest, "webhook signature verification failed")
		return
	}

	if err := h.Service.ProcessEvent(r.Context(), event); err != nil {
		h.Logger.Error("webhook processing failed", "op", "handlers.HandleStripeWebhook",
			"eventId", event.ID, "type", event.Type, "error", err)
		if errors.Is(err, services.ErrBadEventPayload) || errors.Is(err, models.ErrMissingUserMetadata) {
			respondError(w, err)
			return
		}
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
