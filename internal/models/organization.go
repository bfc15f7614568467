package models

import "time"

// Organization roles.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// EnterpriseBaseSeats is the number of seats included in the enterprise plan
// before additional per-user billing kicks in.
const EnterpriseBaseSeats = 3

// RolePermissions maps a role to the permission list stamped onto new
// organizationMembers documents.
var RolePermissions = map[string][]string{
	RoleOwner: {"*"},
	RoleAdmin: {
		"invite_users",
		"manage_users",
		"view_billing",
		"manage_alerts",
		"view_analytics",
		"export_data",
		"manage_settings",
	},
	RoleMember: {
		"create_alerts",
		"view_alerts",
		"manage_own_profile",
		"view_dashboard",
	},
}

// OrganizationSettings holds the seat bookkeeping. AdditionalUsers must equal
// max(0, currentUsers - maxUsers) after every membership change; the seat
// reconciler maintains it, nothing in the database enforces it.
type OrganizationSettings struct {
	MaxUsers        int `firestore:"maxUsers" json:"maxUsers"`
	CurrentUsers    int `firestore:"currentUsers,omitempty" json:"currentUsers,omitempty"`
	AdditionalUsers int `firestore:"additionalUsers" json:"additionalUsers"`
}

// OrganizationBranding is optional per-tenant white labeling.
type OrganizationBranding struct {
	Logo           string `firestore:"logo,omitempty" json:"logo,omitempty"`
	PrimaryColor   string `firestore:"primaryColor,omitempty" json:"primaryColor,omitempty"`
	SecondaryColor string `firestore:"secondaryColor,omitempty" json:"secondaryColor,omitempty"`
	Theme          string `firestore:"theme,omitempty" json:"theme,omitempty"`
}

// Organization is a document in the organizations collection. Created exactly
// once by the webhook ingestor when an enterprise subscription is created.
type Organization struct {
	ID                   string                `firestore:"-" json:"id"`
	Name                 string                `firestore:"name" json:"name"`
	OwnerID              string                `firestore:"ownerId" json:"ownerId"`
	Plan                 string                `firestore:"plan" json:"plan"`
	StripeCustomerID     string                `firestore:"stripeCustomerId" json:"stripeCustomerId"`
	StripeSubscriptionID string                `firestore:"stripeSubscriptionId" json:"stripeSubscriptionId"`
	Settings             OrganizationSettings  `firestore:"settings" json:"settings"`
	Branding             *OrganizationBranding `firestore:"branding,omitempty" json:"branding,omitempty"`
	CreatedAt            time.Time             `firestore:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time             `firestore:"updatedAt" json:"updatedAt"`
}

// OrganizationMember joins a user to an organization with a role.
type OrganizationMember struct {
	ID             string    `firestore:"-" json:"id"`
	OrganizationID string    `firestore:"organizationId" json:"organizationId"`
	UserID         string    `firestore:"userId" json:"userId"`
	Role           string    `firestore:"role" json:"role"`
	Permissions    []string  `firestore:"permissions" json:"permissions"`
	InvitedBy      string    `firestore:"invitedBy" json:"invitedBy"`
	JoinedAt       time.Time `firestore:"joinedAt" json:"joinedAt"`
}

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

// Invitation is a token-bearing record created by the send-invitation
// endpoint and consumed by the acceptance flow.
type Invitation struct {
	ID             string    `firestore:"-" json:"id"`
	OrganizationID string    `firestore:"organizationId" json:"organizationId"`
	Email          string    `firestore:"email" json:"email"`
	Role           string    `firestore:"role" json:"role"`
	InvitedBy      string    `firestore:"invitedBy" json:"invitedBy"`
	Token          string    `firestore:"token" json:"token"`
	Status         string    `firestore:"status" json:"status"`
	ExpiresAt      time.Time `firestore:"expiresAt" json:"expiresAt"`
	CreatedAt      time.Time `firestore:"createdAt" json:"createdAt"`
}
