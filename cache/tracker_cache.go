package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tracksync/model"

	"github.com/go-redis/redis/v8"
)

const (
	trackerListKey = "tracker:list"
	DefaultListTTL = 5 * time.Minute
)

// ErrNotInitialized is returned when the cache has no Redis client.
var ErrNotInitialized = errors.New("Redis client not initialized")

// TrackerCache keeps the serialized tracker list in Redis.
type TrackerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrackerCache creates a list cache on client. A non-positive ttl falls
// back to DefaultListTTL.
func NewTrackerCache(client *redis.Client, ttl time.Duration) *TrackerCache {
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	return &TrackerCache{client: client, ttl: ttl}
}

// GetList returns the cached list. ok is false on a miss.
func (c *TrackerCache) GetList(ctx context.Context) (trackers []model.BackendTracker, ok bool, err error) {
	if c.client == nil {
		return nil, false, ErrNotInitialized
	}

	data, err := c.client.Get(ctx, trackerListKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read tracker list: %w", err)
	}

	trackers, err = decodeList(data)
	if err != nil {
		// drop the unreadable entry so the next read repopulates it
		c.client.Del(ctx, trackerListKey)
		return nil, false, err
	}
	return trackers, true, nil
}

// SetList stores trackers with the cache TTL.
func (c *TrackerCache) SetList(ctx context.Context, trackers []model.BackendTracker) error {
	if c.client == nil {
		return ErrNotInitialized
	}

	data, err := json.Marshal(trackers)
	if err != nil {
		return fmt.Errorf("failed to marshal tracker list: %w", err)
	}
	return c.client.Set(ctx, trackerListKey, data, c.ttl).Err()
}

// Invalidate drops the cached list.
func (c *TrackerCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return ErrNotInitialized
	}
	return c.client.Del(ctx, trackerListKey).Err()
}

// TTL returns the expiry applied by SetList.
func (c *TrackerCache) TTL() time.Duration {
	return c.ttl
}

func decodeList(data []byte) ([]model.BackendTracker, error) {
	trackers := []model.BackendTracker{}
	if err := json.Unmarshal(data, &trackers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracker list: %w", err)
	}
	if trackers == nil {
		trackers = []model.BackendTracker{}
	}
	return trackers, nil
}
