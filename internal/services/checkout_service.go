package services

import (
	"context"
	"log/slog"
	"time"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
)

// TrialDays is the free trial attached to every new checkout.
const TrialDays = 14

// Prices maps plan tiers to provider price ids.
type Prices struct {
	Lite                     string
	Dealer                   string
	Enterprise               string
	EnterpriseAdditionalUser string
}

// ForPlan returns the price id for a plan tier, or "".
func (p Prices) ForPlan(plan string) string {
	switch plan {
	case models.PlanLite:
		return p.Lite
	case models.PlanDealer:
		return p.Dealer
	case models.PlanEnterprise:
		return p.Enterprise
	}
	return ""
}

// Billing is the slice of the payment provider client the services use.
type Billing interface {
	CreateCustomer(ctx context.Context, email, uid string) (pay.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (pay.Customer, bool, error)
	CreateCheckoutSession(ctx context.Context, p pay.CheckoutSessionParams) (pay.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (pay.PortalSession, error)
	GetSubscription(ctx context.Context, id string) (pay.Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string, limit int) ([]pay.Subscription, error)
	ChangePlan(ctx context.Context, subID, itemID, newPriceID string, metadata map[string]string) (pay.Subscription, error)
	CreateSubscriptionItem(ctx context.Context, subID, priceID string, quantity int) (pay.SubscriptionItem, error)
	UpdateSubscriptionItem(ctx context.Context, itemID string, quantity int) (pay.SubscriptionItem, error)
	DeleteSubscriptionItem(ctx context.Context, itemID string) error
}

// UserStore is the slice of the user repository the services use.
type UserStore interface {
	GetUser(ctx context.Context, uid string) (models.UserProfile, error)
	UpdateSubscription(ctx context.Context, uid string, upd models.SubscriptionUpdate) error
	SetOrganization(ctx context.Context, uid, orgID, role string) error
}

// CheckoutService starts provider-hosted checkout and portal sessions and
// applies in-place plan changes.
type CheckoutService struct {
	Users   UserStore
	Billing Billing
	Prices  Prices
	AppURL  string
	Logger  *slog.Logger
}

// CreateCheckoutSession builds a subscription checkout for userID. The caller
// must be the user being checked out; the check runs before any provider call.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, callerUID, userID, plan, organizationName string) (pay.CheckoutSession, error) {
	logger := s.Logger.With("op", "services.CreateCheckoutSession", "uid", userID, "plan", plan)

	if callerUID != userID {
		return pay.CheckoutSession{}, models.ErrNotOwner
	}
	if plan == "" {
		plan = models.PlanDealer
	}
	if !models.ValidPlan(plan) {
		return pay.CheckoutSession{}, models.ErrInvalidPlan
	}

	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return pay.CheckoutSession{}, err
	}

	customerID := ""
	if user.Subscription != nil {
		customerID = user.Subscription.StripeCustomerID
	}
	if customerID == "" {
		customer, err := s.Billing.CreateCustomer(ctx, user.Email, userID)
		if err != nil {
			return pay.CheckoutSession{}, err
		}
		customerID = customer.ID
		logger.Info("created billing customer", "customerId", customerID)
	}

	metadata := map[string]string{
		"firebaseUID": userID,
		"plan":        plan,
	}
	enterprise := plan == models.PlanEnterprise
	if enterprise && organizationName != "" {
		metadata["organizationName"] = organizationName
	}

	session, err := s.Billing.CreateCheckoutSession(ctx, pay.CheckoutSessionParams{
		CustomerID:            customerID,
		PriceID:               s.Prices.ForPlan(plan),
		SuccessURL:            s.AppURL + "/subscription-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:             s.AppURL + "/dashboard",
		TrialDays:             TrialDays,
		Metadata:              metadata,
		CollectBillingAddress: enterprise,
		OrganizationNameField: enterprise && organizationName == "",
	})
	if err != nil {
		return pay.CheckoutSession{}, err
	}

	logger.Info("checkout session created", "sessionId", session.ID)
	return session, nil
}

// CreatePortalSession opens the provider's self-service billing portal.
func (s *CheckoutService) CreatePortalSession(ctx context.Context, callerUID, userID string) (pay.PortalSession, error) {
	if callerUID != userID {
		return pay.PortalSession{}, models.ErrNotOwner
	}

	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return pay.PortalSession{}, err
	}
	if user.Subscription == nil || user.Subscription.StripeCustomerID == "" {
		return pay.PortalSession{}, models.ErrCustomerNotFound
	}

	return s.Billing.CreatePortalSession(ctx, user.Subscription.StripeCustomerID, s.AppURL+"/dashboard")
}

// CreateUpgradeSession swaps the subscription's plan price in place. The
// provider invoices the proration immediately and emits an updated event that
// the webhook ingestor folds back into the user document.
func (s *CheckoutService) CreateUpgradeSession(ctx context.Context, callerUID, userID, newPlan, currentPlan string) (pay.Subscription, error) {
	logger := s.Logger.With("op", "services.CreateUpgradeSession", "uid", userID, "newPlan", newPlan)

	if callerUID != userID {
		return pay.Subscription{}, models.ErrNotOwner
	}
	if !models.ValidPlan(newPlan) {
		return pay.Subscription{}, models.ErrInvalidPlan
	}
	if newPlan == currentPlan {
		return pay.Subscription{}, models.ErrSamePlan
	}

	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return pay.Subscription{}, err
	}
	if user.Subscription == nil || user.Subscription.StripeSubscriptionID == "" {
		return pay.Subscription{}, models.ErrSubscriptionNotFound
	}
	if currentPlan == "" {
		currentPlan = user.Subscription.Plan
	}

	sub, err := s.Billing.GetSubscription(ctx, user.Subscription.StripeSubscriptionID)
	if err != nil {
		return pay.Subscription{}, err
	}
	if len(sub.Items.Data) == 0 {
		return pay.Subscription{}, models.ErrSubscriptionNotFound
	}

	updated, err := s.Billing.ChangePlan(ctx, sub.ID, sub.Items.Data[0].ID, s.Prices.ForPlan(newPlan), map[string]string{
		"firebaseUID":  userID,
		"plan":         newPlan,
		"previousPlan": currentPlan,
		"upgradeFrom":  currentPlan,
		"upgradeDate":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return pay.Subscription{}, err
	}

	logger.Info("plan changed in place", "subscriptionId", updated.ID, "from", currentPlan)
	return updated, nil
}
