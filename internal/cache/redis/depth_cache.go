package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// DepthCache implements domain.DepthCache. Each market's processed book is
// stored as one JSON string at "depth:{network}:{base}-{quote}" and expires
// after the configured TTL, so a stale book is never served for long when the
// poller stops.
type DepthCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDepthCache creates a DepthCache. A zero ttl keeps entries until they are
// overwritten.
func NewDepthCache(c *Client, ttl time.Duration) *DepthCache {
	return &DepthCache{rdb: c.Underlying(), ttl: ttl}
}

// DepthKey returns the cache key of a market's processed book.
func DepthKey(m domain.Market) string {
	return "depth:" + m.Key()
}

// Set stores book for market, replacing any previous entry.
func (dc *DepthCache) Set(ctx context.Context, market domain.Market, book domain.ProcessedOrderBook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: encode depth %s: %w", market.Key(), err)
	}
	if err := dc.rdb.Set(ctx, DepthKey(market), data, dc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set depth %s: %w", market.Key(), err)
	}
	return nil
}

// Get returns the cached book or domain.ErrNotFound.
func (dc *DepthCache) Get(ctx context.Context, market domain.Market) (domain.ProcessedOrderBook, error) {
	data, err := dc.rdb.Get(ctx, DepthKey(market)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ProcessedOrderBook{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ProcessedOrderBook{}, fmt.Errorf("redis: get depth %s: %w", market.Key(), err)
	}

	var book domain.ProcessedOrderBook
	if err := json.Unmarshal(data, &book); err != nil {
		return domain.ProcessedOrderBook{}, fmt.Errorf("redis: decode depth %s: %w", market.Key(), err)
	}
	return book, nil
}

// Compile-time interface check.
var _ domain.DepthCache = (*DepthCache)(nil)
