package repositories

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"autoHunterBack/internal/models"
)

type OrganizationRepository struct {
	Client *firestore.Client
}

func (r *OrganizationRepository) orgs() *firestore.CollectionRef {
	return r.Client.Collection("organizations")
}

func (r *OrganizationRepository) members() *firestore.CollectionRef {
	return r.Client.Collection("organizationMembers")
}

func (r *OrganizationRepository) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	snap, err := r.orgs().Doc(id).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return models.Organization{}, models.ErrOrganizationNotFound
		}
		return models.Organization{}, err
	}

	var org models.Organization
	if err := snap.DataTo(&org); err != nil {
		return models.Organization{}, err
	}
	org.ID = snap.Ref.ID
	return org, nil
}

// OrgDocID derives the organization document id from the subscription, so a
// redelivered creation event lands on the same document instead of minting a
// second organization for the same subscription.
func OrgDocID(subscriptionID string) string {
	return "org_" + subscriptionID
}

// CreateWithOwner creates the organization document, the owner membership and
// the user's organization stamp in one transaction, so an enterprise
// subscription never produces an orphaned organization. The call is
// idempotent: when the organization already exists the user stamp is
// refreshed and the existing id returned.
func (r *OrganizationRepository) CreateWithOwner(ctx context.Context, org models.Organization) (string, error) {
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	orgRef := r.orgs().Doc(OrgDocID(org.StripeSubscriptionID))
	memberRef := r.members().Doc(orgRef.ID + "_" + org.OwnerID)
	userRef := r.Client.Collection("users").Doc(org.OwnerID)

	member := models.OrganizationMember{
		OrganizationID: orgRef.ID,
		UserID:         org.OwnerID,
		Role:           models.RoleOwner,
		Permissions:    models.RolePermissions[models.RoleOwner],
		InvitedBy:      org.OwnerID,
		JoinedAt:       now,
	}

	stampOwner := func(tx *firestore.Transaction) error {
		return tx.Update(userRef, []firestore.Update{
			{Path: "organizationId", Value: orgRef.ID},
			{Path: "organizationRole", Value: models.RoleOwner},
		})
	}

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(orgRef)
		if err != nil && (snap == nil || snap.Exists()) {
			return err
		}
		if snap != nil && snap.Exists() {
			// Redelivery of the creation event: the organization and its
			// owner member are already committed, only the user stamp may
			// still be missing.
			return stampOwner(tx)
		}
		if err := tx.Create(orgRef, org); err != nil {
			return err
		}
		if err := tx.Create(memberRef, member); err != nil {
			return err
		}
		return stampOwner(tx)
	})
	if err != nil {
		return "", err
	}
	return orgRef.ID, nil
}

// GetMember returns the membership record joining uid to orgID.
func (r *OrganizationRepository) GetMember(ctx context.Context, orgID, uid string) (models.OrganizationMember, error) {
	iter := r.members().
		Where("organizationId", "==", orgID).
		Where("userId", "==", uid).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return models.OrganizationMember{}, models.ErrMemberNotFound
	}
	if err != nil {
		return models.OrganizationMember{}, err
	}

	var member models.OrganizationMember
	if err := snap.DataTo(&member); err != nil {
		return models.OrganizationMember{}, err
	}
	member.ID = snap.Ref.ID
	return member, nil
}

func (r *OrganizationRepository) CountMembers(ctx context.Context, orgID string) (int, error) {
	iter := r.members().Where("organizationId", "==", orgID).Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func (r *OrganizationRepository) CreateMember(ctx context.Context, member models.OrganizationMember) (string, error) {
	member.JoinedAt = time.Now()
	ref, _, err := r.members().Add(ctx, member)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// UpdateSeatCounts re-reads the member count inside a transaction and writes
// the seat bookkeeping, so two concurrent reconciliations converge on the
// count that was actually committed last.
func (r *OrganizationRepository) UpdateSeatCounts(ctx context.Context, orgID string) (current, additional int, err error) {
	orgRef := r.orgs().Doc(orgID)

	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(r.members().Where("organizationId", "==", orgID))
		defer iter.Stop()

		current = 0
		for {
			_, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			current++
		}

		additional = current - models.EnterpriseBaseSeats
		if additional < 0 {
			additional = 0
		}

		return tx.Update(orgRef, []firestore.Update{
			{Path: "settings.currentUsers", Value: current},
			{Path: "settings.additionalUsers", Value: additional},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	return current, additional, err
}

// SetBrandingLogo writes the uploaded logo URL onto the organization.
func (r *OrganizationRepository) SetBrandingLogo(ctx context.Context, orgID, logoURL string) error {
	_, err := r.orgs().Doc(orgID).Update(ctx, []firestore.Update{
		{Path: "branding.logo", Value: logoURL},
		{Path: "updatedAt", Value: time.Now()},
	})
	return err
}
