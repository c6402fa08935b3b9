// Package presence tracks which visitors are currently watching the
// colony. Sessions are marked with short-lived Redis keys, so dashboard
// reads can count viewers without a database write per page load.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clowder-server/internal/shared/redis"
)

const keyPrefix = "clowder:presence:"

// Tracker marks visitors present with per-session keys that expire on
// their own.
type Tracker struct {
	client *redis.Client
	logger *slog.Logger

	// TTL is how long one touch keeps a visitor counted.
	TTL time.Duration
}

func NewTracker(client *redis.Client, logger *slog.Logger) *Tracker {
	return &Tracker{
		client: client,
		logger: logger,
		TTL:    2 * time.Minute,
	}
}

// Touch marks the session as present for the TTL window.
func (t *Tracker) Touch(ctx context.Context, sessionID string) error {
	if err := t.client.Set(ctx, keyPrefix+sessionID, "1", t.TTL).Err(); err != nil {
		return fmt.Errorf("failed to mark presence: %w", err)
	}
	return nil
}

// Online counts sessions touched within the TTL window.
func (t *Tracker) Online(ctx context.Context) (int, error) {
	var count int
	var cursor uint64
	for {
		keys, next, err := t.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan presence keys: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}
