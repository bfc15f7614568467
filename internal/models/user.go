package models

import "time"

// Plan tiers. Lite and Dealer are single-seat; Enterprise carries an
// organization with 3 base seats and per-unit additional seats.
const (
	PlanLite       = "lite"
	PlanDealer     = "dealer"
	PlanEnterprise = "enterprise"
)

// Subscription statuses mirror the billing provider's values verbatim.
const (
	StatusActive            = "active"
	StatusTrialing          = "trialing"
	StatusPastDue           = "past_due"
	StatusUnpaid            = "unpaid"
	StatusCanceled          = "canceled"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
)

var planRank = map[string]int{
	PlanLite:       1,
	PlanDealer:     2,
	PlanEnterprise: 3,
}

// ValidPlan reports whether p is a known plan tier.
func ValidPlan(p string) bool {
	_, ok := planRank[p]
	return ok
}

// IsUpgrade reports whether moving from oldPlan to newPlan increases the tier.
func IsUpgrade(oldPlan, newPlan string) bool {
	return planRank[newPlan] > planRank[oldPlan]
}

// Subscription is the embedded billing state on a user document. Status and
// plan always reflect the provider's last known state for the referenced
// subscription; only the webhook ingestor and the sync endpoint write it.
type Subscription struct {
	Status               string     `firestore:"status" json:"status"`
	Plan                 string     `firestore:"plan,omitempty" json:"plan,omitempty"`
	StripeCustomerID     string     `firestore:"stripeCustomerId,omitempty" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string     `firestore:"stripeSubscriptionId,omitempty" json:"stripeSubscriptionId,omitempty"`
	CurrentPeriodEnd     *time.Time `firestore:"currentPeriodEnd,omitempty" json:"currentPeriodEnd,omitempty"`
	TrialEnd             *time.Time `firestore:"trialEnd" json:"trialEnd,omitempty"`
	CancelAtPeriodEnd    bool       `firestore:"cancelAtPeriodEnd" json:"cancelAtPeriodEnd"`
	CreatedAt            *time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt            time.Time  `firestore:"updatedAt" json:"updatedAt"`
}

// UserProfile is a document in the users collection, keyed by the identity
// provider uid. Created on first sign-in; never deleted by the billing flow.
type UserProfile struct {
	UID              string        `firestore:"-" json:"uid"`
	Email            string        `firestore:"email" json:"email"`
	DisplayName      string        `firestore:"displayName,omitempty" json:"displayName,omitempty"`
	PhotoURL         string        `firestore:"photoURL,omitempty" json:"photoURL,omitempty"`
	PhoneNumber      string        `firestore:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	OrganizationID   string        `firestore:"organizationId,omitempty" json:"organizationId,omitempty"`
	OrganizationRole string        `firestore:"organizationRole,omitempty" json:"organizationRole,omitempty"`
	Subscription     *Subscription `firestore:"subscription,omitempty" json:"subscription,omitempty"`
}

// SubscriptionUpdate carries the fields the webhook ingestor and the sync
// endpoint write onto a user's subscription. Nil pointers mean "leave as is";
// TrialEnd distinguishes "absent" (TrialEndSet=false) from an explicit null.
type SubscriptionUpdate struct {
	Status               string
	Plan                 string
	StripeCustomerID     string
	StripeSubscriptionID string
	CancelAtPeriodEnd    *bool
	CurrentPeriodEnd     *time.Time
	TrialEnd             *time.Time
	TrialEndSet          bool
	OrganizationID       string
	OrganizationRole     string
}
