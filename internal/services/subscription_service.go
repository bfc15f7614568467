package services

import (
	"context"
	"log/slog"
	"time"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
)

// SyncResult is the outcome of a manual subscription sync.
type SyncResult struct {
	Synced           bool       `json:"synced"`
	Message          string     `json:"message,omitempty"`
	CustomerID       string     `json:"customerId,omitempty"`
	SubscriptionID   string     `json:"subscriptionId,omitempty"`
	Status           string     `json:"status,omitempty"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

// SubscriptionService recovers from missed webhooks by pulling the provider's
// current state for a user and writing it back.
type SubscriptionService struct {
	Users   UserStore
	Billing Billing
	Logger  *slog.Logger
}

// SyncSubscription looks the user's billing customer up by email, takes the
// newest subscription and mirrors it onto the user document. Finding no
// customer is an error; finding a customer with no subscriptions is not.
func (s *SubscriptionService) SyncSubscription(ctx context.Context, callerUID, userID string) (SyncResult, error) {
	logger := s.Logger.With("op", "services.SyncSubscription", "uid", userID)

	if callerUID != userID {
		return SyncResult{}, models.ErrNotOwner
	}

	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return SyncResult{}, err
	}

	customer, ok, err := s.Billing.FindCustomerByEmail(ctx, user.Email)
	if err != nil {
		return SyncResult{}, err
	}
	if !ok {
		return SyncResult{}, models.ErrCustomerNotFound
	}

	subs, err := s.Billing.ListSubscriptions(ctx, customer.ID, 10)
	if err != nil {
		return SyncResult{}, err
	}
	if len(subs) == 0 {
		logger.Info("customer has no subscriptions", "customerId", customer.ID)
		return SyncResult{
			Synced:     false,
			Message:    "no subscriptions found for customer",
			CustomerID: customer.ID,
		}, nil
	}

	newest := pickNewest(subs)
	upd := models.SubscriptionUpdate{
		Status:               newest.Status,
		StripeCustomerID:     customer.ID,
		StripeSubscriptionID: newest.ID,
		CancelAtPeriodEnd:    &newest.CancelAtPeriodEnd,
		CurrentPeriodEnd:     unixTime(newest.CurrentPeriodEnd),
		TrialEnd:             unixTime(newest.TrialEnd),
		TrialEndSet:          true,
	}
	if err := s.Users.UpdateSubscription(ctx, userID, upd); err != nil {
		return SyncResult{}, err
	}

	logger.Info("subscription synced", "subscriptionId", newest.ID, "status", newest.Status)
	return SyncResult{
		Synced:           true,
		CustomerID:       customer.ID,
		SubscriptionID:   newest.ID,
		Status:           newest.Status,
		CurrentPeriodEnd: unixTime(newest.CurrentPeriodEnd),
	}, nil
}

// pickNewest prefers the subscription with the latest period start; the list
// endpoint already returns newest first, so index 0 is the tie-break.
func pickNewest(subs []pay.Subscription) pay.Subscription {
	newest := subs[0]
	for _, sub := range subs[1:] {
		if sub.CurrentPeriodStart != nil &&
			(newest.CurrentPeriodStart == nil || *sub.CurrentPeriodStart > *newest.CurrentPeriodStart) {
			newest = sub
		}
	}
	return newest
}
