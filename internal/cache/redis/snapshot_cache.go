package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache with a single Redis hash at
// <ns>:snapshot:onchain:
//
//	data      - JSON array of markets
//	stored_at - unix milliseconds
type SnapshotCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache whose entry expires after ttl.
// A zero ttl keeps the entry until it is overwritten.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: c.rdb, key: c.Key("snapshot", "onchain"), ttl: ttl}
}

// StoreOnChain replaces the cached snapshot.
func (sc *SnapshotCache) StoreOnChain(ctx context.Context, markets []domain.Market) error {
	data, storedAt, err := encodeSnapshot(markets, time.Now())
	if err != nil {
		return err
	}

	pipe := sc.rdb.TxPipeline()
	pipe.HSet(ctx, sc.key, "data", data, "stored_at", storedAt)
	if sc.ttl > 0 {
		pipe.Expire(ctx, sc.key, sc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: store snapshot: %w", err)
	}
	return nil
}

// LoadOnChain returns the cached snapshot and when it was stored. It returns
// domain.ErrNotFound when nothing is cached.
func (sc *SnapshotCache) LoadOnChain(ctx context.Context) ([]domain.Market, time.Time, error) {
	fields, err := sc.rdb.HGetAll(ctx, sc.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, domain.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("redis: load snapshot: %w", err)
	}
	return decodeSnapshot(fields)
}

func encodeSnapshot(markets []domain.Market, now time.Time) ([]byte, string, error) {
	if markets == nil {
		markets = []domain.Market{}
	}
	data, err := json.Marshal(markets)
	if err != nil {
		return nil, "", fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	return data, strconv.FormatInt(now.UnixMilli(), 10), nil
}

func decodeSnapshot(fields map[string]string) ([]domain.Market, time.Time, error) {
	data, ok := fields["data"]
	if !ok {
		return nil, time.Time{}, domain.ErrNotFound
	}
	var markets []domain.Market
	if err := json.Unmarshal([]byte(data), &markets); err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	ms, err := strconv.ParseInt(fields["stored_at"], 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: snapshot timestamp: %w", err)
	}
	return markets, time.UnixMilli(ms), nil
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)
