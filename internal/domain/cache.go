package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DepthCache stores recently processed order books.
type DepthCache interface {
	Set(ctx context.Context, market Market, book ProcessedOrderBook) error
	Get(ctx context.Context, market Market) (ProcessedOrderBook, error)
}

// PriceCache stores unit prices returned by the price estimator.
type PriceCache interface {
	SetPrice(ctx context.Context, market Market, price decimal.Decimal) error
	GetPrice(ctx context.Context, market Market) (decimal.Decimal, time.Time, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub between the poller and websocket clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter counts requests per key in a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// DepthChannelPattern matches every depth update channel.
const DepthChannelPattern = "ch:depth:*"

// DepthChannel is the pub/sub channel carrying depth updates for a market.
func DepthChannel(m Market) string {
	return "ch:depth:" + m.Key()
}
