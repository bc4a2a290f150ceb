// Package ledger implements the processed-topic ledger: a recency index
// that keeps a topic from being planned twice within a rolling window.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trendpress/trendpress/internal/plan"
)

const topicKeyPrefix = "processed:topic:"

// DefaultWindow is how long a processed topic stays excluded from
// planning.
const DefaultWindow = 48 * time.Hour

// RedisLedger stores processed-topic records as redis keys whose TTL is
// the expiry window, so expired records are simply absent on lookup and
// nothing ever needs an eager purge.
type RedisLedger struct {
	Client *redis.Client
	Window time.Duration
}

var _ plan.TopicLedger = (*RedisLedger)(nil)

func NewRedisLedger(client *redis.Client, window time.Duration) *RedisLedger {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLedger{Client: client, Window: window}
}

func (l *RedisLedger) IsRecentlyProcessed(ctx context.Context, title string) (bool, error) {
	key := topicKeyPrefix + plan.NormalizeTitle(title)
	if key == topicKeyPrefix {
		return false, nil
	}
	_, err := l.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("ledger lookup %q: %w", key, err)
	}
	return true, nil
}

// MarkProcessed is idempotent: marking an already-processed topic just
// refreshes the expiry.
func (l *RedisLedger) MarkProcessed(ctx context.Context, title string, now time.Time) error {
	key := topicKeyPrefix + plan.NormalizeTitle(title)
	if key == topicKeyPrefix {
		return nil
	}
	if err := l.Client.Set(ctx, key, now.UTC().Format(time.RFC3339), l.Window).Err(); err != nil {
		return fmt.Errorf("ledger mark %q: %w", key, err)
	}
	return nil
}
