package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sullygrrr/digger/db"

	"github.com/go-redis/redis/v8"
)

// feedTTL keeps stale session snapshots from piling up.
const feedTTL = 24 * time.Hour

// FeedSnapshot mirrors one user's queue state for inspection and debugging;
// the authoritative buffer lives in process memory.
type FeedSnapshot struct {
	TrackIDs  []string `json:"trackIds"`
	UpdatedAt int64    `json:"updatedAt"`
}

// feedKey builds the Redis key for a user's feed snapshot.
func feedKey(userID int64) string {
	return fmt.Sprintf("feed:queue:%d", userID)
}

// SaveFeedSnapshot stores the queued track ids for a user. Best-effort:
// callers log failures and move on.
func SaveFeedSnapshot(ctx context.Context, userID int64, trackIDs []string) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	snap := FeedSnapshot{TrackIDs: trackIDs, UpdatedAt: time.Now().Unix()}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal feed snapshot: %w", err)
	}

	if err := db.RedisClient.Set(ctx, feedKey(userID), payload, feedTTL).Err(); err != nil {
		return fmt.Errorf("failed to save feed snapshot: %w", err)
	}
	return nil
}

// GetFeedSnapshot fetches a user's feed snapshot, or nil when none exists.
func GetFeedSnapshot(ctx context.Context, userID int64) (*FeedSnapshot, error) {
	if db.RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	payload, err := db.RedisClient.Get(ctx, feedKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get feed snapshot: %w", err)
	}

	var snap FeedSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed snapshot: %w", err)
	}
	return &snap, nil
}

// ClearFeedSnapshot removes a user's feed snapshot.
func ClearFeedSnapshot(ctx context.Context, userID int64) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := db.RedisClient.Del(ctx, feedKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear feed snapshot: %w", err)
	}
	return nil
}
