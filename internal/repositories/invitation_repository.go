package repositories

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"autoHunterBack/internal/models"
)

type InvitationRepository struct {
	Client *firestore.Client
}

func (r *InvitationRepository) invitations() *firestore.CollectionRef {
	return r.Client.Collection("invitations")
}

func (r *InvitationRepository) Create(ctx context.Context, inv models.Invitation) (string, error) {
	inv.CreatedAt = time.Now()
	ref, _, err := r.invitations().Add(ctx, inv)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// GetPendingByToken resolves an invitation token to its pending record.
func (r *InvitationRepository) GetPendingByToken(ctx context.Context, token string) (models.Invitation, error) {
	iter := r.invitations().
		Where("token", "==", token).
		Where("status", "==", models.InvitationPending).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return models.Invitation{}, models.ErrInvitationNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}

	var inv models.Invitation
	if err := snap.DataTo(&inv); err != nil {
		return models.Invitation{}, err
	}
	inv.ID = snap.Ref.ID
	return inv, nil
}

func (r *InvitationRepository) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.invitations().Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
	})
	return err
}

// ExpireStale marks pending invitations past their expiry. Returns how many
// were flipped; used by the background cleaner.
func (r *InvitationRepository) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	iter := r.invitations().
		Where("status", "==", models.InvitationPending).
		Where("expiresAt", "<", now).
		Documents(ctx)
	defer iter.Stop()

	expired := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return expired, err
		}
		if _, err := snap.Ref.Update(ctx, []firestore.Update{
			{Path: "status", Value: models.InvitationExpired},
		}); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
