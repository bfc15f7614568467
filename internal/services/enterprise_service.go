package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"autoHunterBack/internal/models"
)

// InvitationTTL is how long an invite token stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// Seat reconciliation actions.
const (
	ActionAddUser    = "add_user"
	ActionRemoveUser = "remove_user"
)

// OrgStore is the slice of the organization repository the enterprise
// service uses.
type OrgStore interface {
	GetOrganization(ctx context.Context, id string) (models.Organization, error)
	GetMember(ctx context.Context, orgID, uid string) (models.OrganizationMember, error)
	CreateMember(ctx context.Context, member models.OrganizationMember) (string, error)
	UpdateSeatCounts(ctx context.Context, orgID string) (current, additional int, err error)
	SetBrandingLogo(ctx context.Context, orgID, logoURL string) error
}

// InvitationStore is the slice of the invitation repository the enterprise
// service uses.
type InvitationStore interface {
	Create(ctx context.Context, inv models.Invitation) (string, error)
	GetPendingByToken(ctx context.Context, token string) (models.Invitation, error)
	SetStatus(ctx context.Context, id, status string) error
}

// Uploader stores an uploaded file and returns its public URL.
type Uploader interface {
	Upload(data []byte, filename, folder string) (string, error)
}

// SeatChange reports the seat state after a reconciliation.
type SeatChange struct {
	CurrentUsers    int `json:"currentUsers"`
	AdditionalUsers int `json:"additionalUsers"`
}

// EnterpriseService manages organization membership, per-seat billing and
// invitations for the enterprise plan.
type EnterpriseService struct {
	Users       UserStore
	Orgs        OrgStore
	Invitations InvitationStore
	Billing     Billing
	Prices      Prices
	Notifier    Enqueuer
	Uploader    Uploader

	// NewToken mints invite tokens. Wired to utils.NewInviteToken.
	NewToken func() string

	Logger *slog.Logger
}

// ManageUsers reconciles per-seat billing after a membership change. The
// member count is re-read and written inside a transaction, then the provider
// line item for additional seats is brought in line with max(0, count-3).
// Only owners and admins may call it.
func (s *EnterpriseService) ManageUsers(ctx context.Context, callerUID, orgID, action string) (SeatChange, error) {
	logger := s.Logger.With("op", "services.ManageUsers", "orgId", orgID, "action", action)

	if action != ActionAddUser && action != ActionRemoveUser {
		return SeatChange{}, models.ErrInvalidAction
	}
	if err := s.requireAdmin(ctx, orgID, callerUID); err != nil {
		return SeatChange{}, err
	}

	org, err := s.Orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return SeatChange{}, err
	}
	if org.StripeSubscriptionID == "" {
		return SeatChange{}, models.ErrSubscriptionNotFound
	}

	change, err := s.reconcileSeats(ctx, logger, org)
	if err != nil {
		return SeatChange{}, err
	}
	return change, nil
}

// reconcileSeats recounts members transactionally, persists the counts and
// adjusts the additional-seat line item on the subscription. Prorations are
// left to the provider.
func (s *EnterpriseService) reconcileSeats(ctx context.Context, logger *slog.Logger, org models.Organization) (SeatChange, error) {
	// Verify the subscription carries the enterprise base line item before
	// touching the organization document, so a rejected call leaves the
	// stored counts untouched.
	sub, err := s.Billing.GetSubscription(ctx, org.StripeSubscriptionID)
	if err != nil {
		return SeatChange{}, err
	}
	if sub.ItemForPrice(s.Prices.Enterprise) == nil {
		return SeatChange{}, models.ErrNotEnterprise
	}

	current, additional, err := s.Orgs.UpdateSeatCounts(ctx, org.ID)
	if err != nil {
		return SeatChange{}, fmt.Errorf("update seat counts: %w", err)
	}

	item := sub.ItemForPrice(s.Prices.EnterpriseAdditionalUser)
	switch {
	case additional == 0 && item != nil:
		if err := s.Billing.DeleteSubscriptionItem(ctx, item.ID); err != nil {
			return SeatChange{}, err
		}
		logger.Info("removed additional seat line item")
	case additional > 0 && item == nil:
		if _, err := s.Billing.CreateSubscriptionItem(ctx, sub.ID, s.Prices.EnterpriseAdditionalUser, additional); err != nil {
			return SeatChange{}, err
		}
		logger.Info("created additional seat line item", "quantity", additional)
	case additional > 0 && item.Quantity != int64(additional):
		if _, err := s.Billing.UpdateSubscriptionItem(ctx, item.ID, additional); err != nil {
			return SeatChange{}, err
		}
		logger.Info("updated additional seat line item", "quantity", additional)
	}

	logger.Info("seats reconciled", "currentUsers", current, "additionalUsers", additional)
	return SeatChange{CurrentUsers: current, AdditionalUsers: additional}, nil
}

// SendInvitation creates a pending invite and queues the email.
func (s *EnterpriseService) SendInvitation(ctx context.Context, callerUID, orgID, email, role string) (models.Invitation, error) {
	logger := s.Logger.With("op", "services.SendInvitation", "orgId", orgID, "email", email)

	if role != models.RoleAdmin && role != models.RoleMember {
		return models.Invitation{}, models.ErrInvalidAction
	}
	if err := s.requireAdmin(ctx, orgID, callerUID); err != nil {
		return models.Invitation{}, err
	}

	org, err := s.Orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return models.Invitation{}, err
	}

	now := time.Now()
	inv := models.Invitation{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		InvitedBy:      callerUID,
		Token:          s.NewToken(),
		Status:         models.InvitationPending,
		ExpiresAt:      now.Add(InvitationTTL),
		CreatedAt:      now,
	}
	inv.ID, err = s.Invitations.Create(ctx, inv)
	if err != nil {
		return models.Invitation{}, err
	}
	logger.Info("invitation created", "invitationId", inv.ID, "role", role)

	inviterName := ""
	if inviter, err := s.Users.GetUser(ctx, callerUID); err == nil {
		inviterName = inviter.DisplayName
		if inviterName == "" {
			inviterName = inviter.Email
		}
	}
	s.Notifier.Enqueue(Notification{Invitation: &InvitationEmailData{
		Email:            email,
		OrganizationName: org.Name,
		Role:             role,
		InviteToken:      inv.Token,
		InviterName:      inviterName,
	}})
	return inv, nil
}

// AcceptInvitation redeems an invite token for uid: marks the invitation
// accepted, creates the membership, stamps the user and reconciles seat
// billing. A failed billing adjustment does not undo the membership; the next
// reconciliation converges it.
func (s *EnterpriseService) AcceptInvitation(ctx context.Context, uid, token string) (models.Invitation, error) {
	logger := s.Logger.With("op", "services.AcceptInvitation", "uid", uid)

	inv, err := s.Invitations.GetPendingByToken(ctx, token)
	if err != nil {
		return models.Invitation{}, err
	}
	if time.Now().After(inv.ExpiresAt) {
		if err := s.Invitations.SetStatus(ctx, inv.ID, models.InvitationExpired); err != nil {
			logger.Error("failed to expire invitation", "invitationId", inv.ID, "error", err)
		}
		return models.Invitation{}, models.ErrInvitationExpired
	}

	if _, err := s.Orgs.GetMember(ctx, inv.OrganizationID, uid); err == nil {
		return models.Invitation{}, models.ErrAlreadyMember
	} else if !errors.Is(err, models.ErrMemberNotFound) {
		return models.Invitation{}, err
	}

	_, err = s.Orgs.CreateMember(ctx, models.OrganizationMember{
		OrganizationID: inv.OrganizationID,
		UserID:         uid,
		Role:           inv.Role,
		Permissions:    models.RolePermissions[inv.Role],
		InvitedBy:      inv.InvitedBy,
	})
	if err != nil {
		return models.Invitation{}, fmt.Errorf("create member: %w", err)
	}
	if err := s.Users.SetOrganization(ctx, uid, inv.OrganizationID, inv.Role); err != nil {
		return models.Invitation{}, fmt.Errorf("stamp user organization: %w", err)
	}
	if err := s.Invitations.SetStatus(ctx, inv.ID, models.InvitationAccepted); err != nil {
		logger.Error("failed to mark invitation accepted", "invitationId", inv.ID, "error", err)
	}
	logger.Info("invitation accepted", "orgId", inv.OrganizationID, "role", inv.Role)

	org, err := s.Orgs.GetOrganization(ctx, inv.OrganizationID)
	if err == nil && org.StripeSubscriptionID != "" {
		if _, err := s.reconcileSeats(ctx, logger, org); err != nil {
			logger.Error("seat billing reconciliation failed", "orgId", org.ID, "error", err)
		}
	}
	return inv, nil
}

// SetLogo uploads an organization logo and writes its URL onto the document.
func (s *EnterpriseService) SetLogo(ctx context.Context, callerUID, orgID string, data []byte, filename string) (string, error) {
	if err := s.requireAdmin(ctx, orgID, callerUID); err != nil {
		return "", err
	}
	logoURL, err := s.Uploader.Upload(data, filename, "org-logos")
	if err != nil {
		return "", fmt.Errorf("upload logo: %w", err)
	}
	if err := s.Orgs.SetBrandingLogo(ctx, orgID, logoURL); err != nil {
		return "", err
	}
	s.Logger.Info("organization logo updated", "op", "services.SetLogo", "orgId", orgID)
	return logoURL, nil
}

func (s *EnterpriseService) requireAdmin(ctx context.Context, orgID, uid string) error {
	member, err := s.Orgs.GetMember(ctx, orgID, uid)
	if err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return models.ErrNotOrgMember
		}
		return err
	}
	if member.Role != models.RoleOwner && member.Role != models.RoleAdmin {
		return models.ErrNotOrgAdmin
	}
	return nil
}
