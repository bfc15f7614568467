package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventRepository records billing-provider event ids that have been fully
// processed, so webhook redeliveries become no-ops past the first commit.
// Keys expire; the provider stops redelivering long before the TTL.
type EventRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

const processedEventTTL = 72 * time.Hour

func (r *EventRepository) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return processedEventTTL
}

// Seen reports whether the event id was already committed.
func (r *EventRepository) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := r.RDB.Exists(ctx, "stripe:event:"+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records a committed event id.
func (r *EventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	return r.RDB.Set(ctx, "stripe:event:"+eventID, 1, r.ttl()).Err()
}
