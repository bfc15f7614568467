package services

import (
	"context"
	"log"
	"time"
)

// InvitationExpirer is the slice of the invitation repository the cleaner
// needs.
type InvitationExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// StartInvitationCleaner sweeps pending invitations past their expiry on a
// fixed interval until ctx is cancelled. Call it in its own goroutine.
func StartInvitationCleaner(ctx context.Context, store InvitationExpirer, interval time.Duration, infoLog, errorLog *log.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.ExpireStale(ctx, time.Now())
			if err != nil {
				errorLog.Printf("invitation cleaner: %v", err)
				continue
			}
			if n > 0 {
				infoLog.Printf("invitation cleaner: expired %d invitations", n)
			}
		}
	}
}
