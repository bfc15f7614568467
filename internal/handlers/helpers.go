package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/services"
)

type contextKey string

// ContextKeyUID is set by the auth middleware once a bearer token is
// verified.
const ContextKeyUID contextKey = "uid"

// UIDFromContext returns the authenticated user's uid, or "".
func UIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(ContextKeyUID).(string)
	return uid
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps service sentinel errors onto HTTP statuses. Anything
// unmapped is a 500 with a generic body.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotOwner):
		writeError(w, http.StatusForbidden, "you can only manage your own subscription")
	case errors.Is(err, models.ErrNotOrgAdmin), errors.Is(err, models.ErrNotOrgMember):
		writeError(w, http.StatusForbidden, "insufficient organization permissions")
	case errors.Is(err, models.ErrNoRecord),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrOrganizationNotFound),
		errors.Is(err, models.ErrMemberNotFound),
		errors.Is(err, models.ErrInvitationNotFound),
		errors.Is(err, models.ErrJobNotFound),
		errors.Is(err, models.ErrCustomerNotFound),
		errors.Is(err, models.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrSamePlan),
		errors.Is(err, models.ErrInvalidPlan),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, models.ErrInvalidWorker),
		errors.Is(err, models.ErrNotEnterprise),
		errors.Is(err, models.ErrInvitationExpired),
		errors.Is(err, models.ErrAlreadyMember),
		errors.Is(err, models.ErrMissingUserMetadata),
		errors.Is(err, services.ErrBadEventPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
