package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrCacheUnavailable wraps Redis failures so callers can fall back to the store.
var ErrCacheUnavailable = errors.New("ledger: summary cache unavailable")

// SummaryCache keeps per-account summary reports in Redis. Every account has
// a version counter; bumping it orphans the previous entries, which then
// expire through the TTL.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewSummaryCache instantiates the cache helper.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SummaryCache{client: client, ttl: ttl}
}

func versionKey(ownerID int64) string {
	return fmt.Sprintf("ledger:summary:version:%d", ownerID)
}

func (c *SummaryCache) version(ctx context.Context, ownerID int64) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

// Fetch returns the cached report for ownerID, running loader on a miss.
// Concurrent misses for the same key share one loader call.
func (c *SummaryCache) Fetch(ctx context.Context, ownerID int64, loader func(context.Context) ([]SummaryEntry, error)) ([]SummaryEntry, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.version(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	key := fmt.Sprintf("ledger:summary:%d:v%d", ownerID, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var out []SummaryEntry
		if err := json.Unmarshal(payload, &out); err == nil {
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	// The flight is shared, so it must outlive the caller that started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		entries, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(entries); err == nil {
			// A failed write only means the next read rebuilds the entry.
			_ = c.client.Set(loadCtx, key, raw, c.ttl).Err()
		}
		return entries, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]SummaryEntry), nil
	}
}

// Invalidate bumps the account version so the next Fetch reloads.
func (c *SummaryCache) Invalidate(ctx context.Context, ownerID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, versionKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
