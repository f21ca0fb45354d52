package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EventDedup implements ports.EventDedup using Redis SET NX. Provider
// webhooks can be delivered more than once; the first delivery of an event ID
// wins and replays are reported as duplicates.
type EventDedup struct {
	client *goredis.Client
	prefix string
}

// NewEventDedup creates a new Redis-backed event dedup store.
func NewEventDedup(client *goredis.Client) *EventDedup {
	return &EventDedup{
		client: client,
		prefix: "event:",
	}
}

// CheckAndSet atomically checks if an event ID was seen, marking it if not.
// Returns true if the event is new, false if already delivered.
func (s *EventDedup) CheckAndSet(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	key := s.prefix + eventID
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — event was already delivered
			return false, nil
		}
		return false, fmt.Errorf("redis event dedup: %w", err)
	}
	return result == "OK", nil
}

// Clear drops an event ID claim. Called when processing fails after the
// claim was taken, so the provider's retry of the same event is not dropped.
func (s *EventDedup) Clear(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.prefix+eventID).Err(); err != nil {
		return fmt.Errorf("redis event dedup clear: %w", err)
	}
	return nil
}
