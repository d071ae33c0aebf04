package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenNewsTTL = 30 * 24 * time.Hour

// SeenNewsStore remembers which news items an account was already notified
// about, backed by Redis.
// Key format: news:<account_local_id>:<news_id>
type SeenNewsStore struct {
	client *redis.Client
}

// NewSeenNewsStore creates a SeenNewsStore wrapping the given Redis client.
func NewSeenNewsStore(client *redis.Client) *SeenNewsStore {
	return &SeenNewsStore{client: client}
}

// Seen reports whether this news item was already announced to the account.
func (s *SeenNewsStore) Seen(ctx context.Context, accountLocalID, newsID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(accountLocalID, newsID)).Result()
	if err != nil {
		return false, fmt.Errorf("seen-news check: %w", err)
	}
	return n > 0, nil
}

// Mark records the news item as announced (expires after seenNewsTTL, long
// past any feed's retention).
func (s *SeenNewsStore) Mark(ctx context.Context, accountLocalID, newsID string) error {
	return s.client.Set(ctx, s.key(accountLocalID, newsID), "1", seenNewsTTL).Err()
}

func (s *SeenNewsStore) key(accountLocalID, newsID string) string {
	return fmt.Sprintf("news:%s:%s", accountLocalID, newsID)
}
