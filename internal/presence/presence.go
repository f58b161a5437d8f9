// Package presence keeps advisory per-room occupancy counters in
// Redis. The broadcast hub bumps them on join and disconnect; the
// presence API endpoint reads them. Counters are advisory only — the
// authoritative membership set lives in the hub's in-memory registry,
// and a Redis outage must never take chat down with it.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Counters expire after a quiet day so abandoned rooms don't leak keys.
const counterTTL = 24 * time.Hour

type Tracker struct {
	client *redis.Client
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func key(roomID uuid.UUID) string {
	return "presence:" + roomID.String()
}

// Track records one more occupant in the room.
func (t *Tracker) Track(ctx context.Context, roomID uuid.UUID) error {
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key(roomID))
	pipe.Expire(ctx, key(roomID), counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track presence: %w", err)
	}
	return nil
}

// Forget records one occupant leaving. The counter is floored at zero:
// a decrement racing a counter expiry must not leave it negative.
func (t *Tracker) Forget(ctx context.Context, roomID uuid.UUID) error {
	n, err := t.client.Decr(ctx, key(roomID)).Result()
	if err != nil {
		return fmt.Errorf("forget presence: %w", err)
	}
	if n < 0 {
		if err := t.client.Set(ctx, key(roomID), 0, counterTTL).Err(); err != nil {
			return fmt.Errorf("floor presence: %w", err)
		}
	}
	return nil
}

// Count returns the current occupancy for a room. A missing key reads
// as zero.
func (t *Tracker) Count(ctx context.Context, roomID uuid.UUID) (int64, error) {
	n, err := t.client.Get(ctx, key(roomID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count presence: %w", err)
	}
	return n, nil
}
