package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
)

// ErrBadEventPayload marks an event whose data object does not decode into
// the expected shape. Handlers answer it with 400 so the provider surfaces
// the failure instead of silently retrying forever.
var ErrBadEventPayload = errors.New("services: webhook payload has unexpected shape")

// OrgCreator is the slice of the organization repository the webhook
// ingestor uses.
type OrgCreator interface {
	CreateWithOwner(ctx context.Context, org models.Organization) (string, error)
}

// EventStore tracks which webhook event ids were already processed.
type EventStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Enqueuer is the notifier's intake.
type Enqueuer interface {
	Enqueue(msg Notification) bool
}

// WebhookService folds provider webhook events into Firestore. It is the only
// writer of subscription state besides the sync endpoint.
type WebhookService struct {
	Users    UserStore
	Orgs     OrgCreator
	Events   EventStore
	Billing  Billing
	Notifier Enqueuer
	Logger   *slog.Logger
}

// ProcessEvent applies one verified event. Events already processed are
// skipped. A nil return means the event's effects are durably committed and
// the id is marked processed; any error leaves the id unmarked so a provider
// redelivery gets another attempt.
func (s *WebhookService) ProcessEvent(ctx context.Context, event pay.Event) error {
	logger := s.Logger.With("op", "services.ProcessEvent", "eventId", event.ID, "type", event.Type)

	seen, err := s.Events.Seen(ctx, event.ID)
	if err != nil {
		// Dedupe store down. Processing anyway risks a double write,
		// but subscription writes are last-writer-wins upserts, so a
		// replay converges. Dropping the event would not.
		logger.Error("event dedupe check failed, processing anyway", "error", err)
	}
	if seen {
		logger.Info("duplicate event skipped")
		return nil
	}

	switch event.Type {
	case pay.EventSubscriptionCreated:
		err = s.handleSubscriptionChange(ctx, logger, event, true)
	case pay.EventSubscriptionUpdated:
		err = s.handleSubscriptionChange(ctx, logger, event, false)
	case pay.EventSubscriptionDeleted:
		err = s.handleSubscriptionDeleted(ctx, logger, event)
	case pay.EventPaymentFailed, pay.EventPaymentSucceeded:
		err = s.handlePaymentEvent(ctx, logger, event)
	default:
		logger.Info("unhandled event type acknowledged")
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.Events.MarkProcessed(ctx, event.ID); err != nil {
		// The work committed; a redelivery will re-run it idempotently.
		logger.Error("failed to mark event processed", "error", err)
	}
	return nil
}

func (s *WebhookService) handleSubscriptionChange(ctx context.Context, logger *slog.Logger, event pay.Event, isNew bool) error {
	sub, err := event.Subscription()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadEventPayload, err)
	}

	uid := sub.Metadata["firebaseUID"]
	if uid == "" {
		logger.Error("subscription event carries no user id", "subscriptionId", sub.ID)
		return models.ErrMissingUserMetadata
	}
	plan := sub.Metadata["plan"]
	logger = logger.With("uid", uid, "subscriptionId", sub.ID, "status", sub.Status, "plan", plan)

	// The previous plan comes from the change metadata when the in-place
	// upgrade stamped it, otherwise from the stored profile.
	oldPlan := ""
	var user models.UserProfile
	userLoaded := false
	if !isNew {
		oldPlan = sub.Metadata["previousPlan"]
		if oldPlan == "" {
			oldPlan = sub.Metadata["upgradeFrom"]
		}
		if oldPlan == "" {
			if user, err = s.Users.GetUser(ctx, uid); err == nil {
				userLoaded = true
				if user.Subscription != nil {
					oldPlan = user.Subscription.Plan
				}
			}
		}
	}

	upd := models.SubscriptionUpdate{
		Status:               sub.Status,
		Plan:                 plan,
		StripeCustomerID:     sub.Customer,
		StripeSubscriptionID: sub.ID,
		CancelAtPeriodEnd:    &sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:     unixTime(sub.CurrentPeriodEnd),
		TrialEnd:             unixTime(sub.TrialEnd),
		TrialEndSet:          true,
	}

	if isNew && plan == models.PlanEnterprise {
		orgName := sub.Metadata["organizationName"]
		if orgName == "" {
			orgName = "My Organization"
		}
		orgID, err := s.Orgs.CreateWithOwner(ctx, models.Organization{
			Name:                 orgName,
			OwnerID:              uid,
			Plan:                 models.PlanEnterprise,
			StripeCustomerID:     sub.Customer,
			StripeSubscriptionID: sub.ID,
			Settings: models.OrganizationSettings{
				MaxUsers:     models.EnterpriseBaseSeats,
				CurrentUsers: 1,
			},
		})
		if err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		upd.OrganizationID = orgID
		upd.OrganizationRole = models.RoleOwner
		logger.Info("organization created", "organizationId", orgID, "name", orgName)
	}

	if err := s.Users.UpdateSubscription(ctx, uid, upd); err != nil {
		return fmt.Errorf("update subscription for %s: %w", uid, err)
	}
	logger.Info("subscription state written")

	if isNew {
		s.enqueueWelcome(ctx, logger, uid, plan, sub)
	} else if oldPlan != "" && plan != "" && oldPlan != plan {
		s.enqueuePlanChange(ctx, logger, uid, oldPlan, plan, sub, user, userLoaded)
	}
	return nil
}

func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, logger *slog.Logger, event pay.Event) error {
	sub, err := event.Subscription()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadEventPayload, err)
	}

	uid := sub.Metadata["firebaseUID"]
	if uid == "" {
		// Old subscriptions without stamped metadata cannot be mapped
		// back; acknowledge and move on.
		logger.Error("deleted subscription carries no user id", "subscriptionId", sub.ID)
		return nil
	}

	falseVal := false
	err = s.Users.UpdateSubscription(ctx, uid, models.SubscriptionUpdate{
		Status:            models.StatusCanceled,
		CancelAtPeriodEnd: &falseVal,
	})
	if err != nil {
		return fmt.Errorf("cancel subscription for %s: %w", uid, err)
	}
	logger.Info("subscription canceled", "uid", uid, "subscriptionId", sub.ID)
	return nil
}

// handlePaymentEvent re-fetches the subscription an invoice belongs to and
// copies its authoritative status, covering past_due, unpaid and recoveries.
func (s *WebhookService) handlePaymentEvent(ctx context.Context, logger *slog.Logger, event pay.Event) error {
	inv, err := event.Invoice()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadEventPayload, err)
	}
	if inv.Subscription == "" {
		logger.Info("invoice without subscription acknowledged", "invoiceId", inv.ID)
		return nil
	}

	sub, err := s.Billing.GetSubscription(ctx, inv.Subscription)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", inv.Subscription, err)
	}
	uid := sub.Metadata["firebaseUID"]
	if uid == "" {
		logger.Error("subscription carries no user id", "subscriptionId", sub.ID)
		return nil
	}

	err = s.Users.UpdateSubscription(ctx, uid, models.SubscriptionUpdate{
		Status:           sub.Status,
		CurrentPeriodEnd: unixTime(sub.CurrentPeriodEnd),
	})
	if err != nil {
		return fmt.Errorf("update payment status for %s: %w", uid, err)
	}
	logger.Info("payment status written", "uid", uid, "status", sub.Status)
	return nil
}

// Notification failures never fail the event: billing state is committed by
// the time these run, and losing an email is cheaper than re-running writes.
func (s *WebhookService) enqueueWelcome(ctx context.Context, logger *slog.Logger, uid, plan string, sub pay.Subscription) {
	user, err := s.Users.GetUser(ctx, uid)
	if err != nil {
		logger.Error("skipping welcome email, user lookup failed", "error", err)
		return
	}
	s.Notifier.Enqueue(Notification{Welcome: &WelcomeEmailData{
		Email:            user.Email,
		Name:             user.DisplayName,
		Plan:             plan,
		OrganizationName: sub.Metadata["organizationName"],
		IsTrialing:       sub.Status == models.StatusTrialing,
		TrialEndsAt:      unixTime(sub.TrialEnd),
	}})
}

func (s *WebhookService) enqueuePlanChange(ctx context.Context, logger *slog.Logger, uid, oldPlan, newPlan string, sub pay.Subscription, user models.UserProfile, userLoaded bool) {
	if !userLoaded {
		var err error
		if user, err = s.Users.GetUser(ctx, uid); err != nil {
			logger.Error("skipping plan change email, user lookup failed", "error", err)
			return
		}
	}
	s.Notifier.Enqueue(Notification{PlanChange: &PlanChangeEmailData{
		Email:         user.Email,
		Name:          user.DisplayName,
		OldPlan:       oldPlan,
		NewPlan:       newPlan,
		IsUpgrade:     models.IsUpgrade(oldPlan, newPlan),
		EffectiveDate: unixTime(sub.CurrentPeriodStart),
	}})
}

func unixTime(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}
