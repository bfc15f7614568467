package repositories

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"autoHunterBack/internal/models"
)

type UserRepository struct {
	Client *firestore.Client
}

func (r *UserRepository) users() *firestore.CollectionRef {
	return r.Client.Collection("users")
}

func (r *UserRepository) GetUser(ctx context.Context, uid string) (models.UserProfile, error) {
	snap, err := r.users().Doc(uid).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return models.UserProfile{}, models.ErrUserNotFound
		}
		return models.UserProfile{}, err
	}

	var user models.UserProfile
	if err := snap.DataTo(&user); err != nil {
		return models.UserProfile{}, err
	}
	user.UID = snap.Ref.ID
	return user, nil
}

// UpdateSubscription writes the given subscription fields onto the user
// document. This is the single write path shared by the webhook ingestor and
// the sync endpoint, so local state always moves the same way.
func (r *UserRepository) UpdateSubscription(ctx context.Context, uid string, upd models.SubscriptionUpdate) error {
	updates := []firestore.Update{
		{Path: "subscription.status", Value: upd.Status},
		{Path: "subscription.updatedAt", Value: time.Now()},
	}
	if upd.Plan != "" {
		updates = append(updates, firestore.Update{Path: "subscription.plan", Value: upd.Plan})
	}
	if upd.StripeCustomerID != "" {
		updates = append(updates, firestore.Update{Path: "subscription.stripeCustomerId", Value: upd.StripeCustomerID})
	}
	if upd.StripeSubscriptionID != "" {
		updates = append(updates, firestore.Update{Path: "subscription.stripeSubscriptionId", Value: upd.StripeSubscriptionID})
	}
	if upd.CancelAtPeriodEnd != nil {
		updates = append(updates, firestore.Update{Path: "subscription.cancelAtPeriodEnd", Value: *upd.CancelAtPeriodEnd})
	}
	if upd.CurrentPeriodEnd != nil {
		updates = append(updates, firestore.Update{Path: "subscription.currentPeriodEnd", Value: *upd.CurrentPeriodEnd})
	}
	if upd.TrialEndSet {
		// An explicit null clears a finished trial.
		if upd.TrialEnd != nil {
			updates = append(updates, firestore.Update{Path: "subscription.trialEnd", Value: *upd.TrialEnd})
		} else {
			updates = append(updates, firestore.Update{Path: "subscription.trialEnd", Value: nil})
		}
	}
	if upd.OrganizationID != "" {
		updates = append(updates,
			firestore.Update{Path: "organizationId", Value: upd.OrganizationID},
			firestore.Update{Path: "organizationRole", Value: upd.OrganizationRole},
		)
	}

	_, err := r.users().Doc(uid).Update(ctx, updates)
	return err
}

// SetOrganization stamps organization membership onto a user document.
func (r *UserRepository) SetOrganization(ctx context.Context, uid, orgID, role string) error {
	_, err := r.users().Doc(uid).Update(ctx, []firestore.Update{
		{Path: "organizationId", Value: orgID},
		{Path: "organizationRole", Value: role},
	})
	return err
}
