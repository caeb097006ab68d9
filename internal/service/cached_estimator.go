package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// CachedEstimator wraps a domain.PriceEstimator with a PriceCache for
// unit-price requests (amount 1), which is what quote conversion asks for.
// Other amounts always go to the upstream estimator.
type CachedEstimator struct {
	next   domain.PriceEstimator
	cache  domain.PriceCache
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCachedEstimator creates a CachedEstimator. Cached prices older than
// maxAge are refreshed; a zero maxAge relies on the cache's own expiry.
func NewCachedEstimator(next domain.PriceEstimator, cache domain.PriceCache, maxAge time.Duration, logger *slog.Logger) *CachedEstimator {
	return &CachedEstimator{next: next, cache: cache, maxAge: maxAge, logger: logger, now: time.Now}
}

var one = decimal.NewFromInt(1)

// EstimatePrice implements domain.PriceEstimator.
func (c *CachedEstimator) EstimatePrice(ctx context.Context, network domain.NetworkID, baseTokenID, quoteTokenID int, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.Equal(one) {
		return c.next.EstimatePrice(ctx, network, baseTokenID, quoteTokenID, amount)
	}

	market := domain.Market{Network: network, BaseTokenID: baseTokenID, QuoteTokenID: quoteTokenID}
	price, storedAt, err := c.cache.GetPrice(ctx, market)
	switch {
	case err == nil && (c.maxAge <= 0 || c.now().Sub(storedAt) < c.maxAge):
		return price, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		c.logger.WarnContext(ctx, "cached_estimator: cache get failed",
			slog.String("market", market.Key()),
			slog.String("error", err.Error()),
		)
	}

	price, err = c.next.EstimatePrice(ctx, network, baseTokenID, quoteTokenID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.cache.SetPrice(ctx, market, price); err != nil {
		c.logger.WarnContext(ctx, "cached_estimator: cache set failed",
			slog.String("market", market.Key()),
			slog.String("error", err.Error()),
		)
	}
	return price, nil
}

// Compile-time interface check.
var _ domain.PriceEstimator = (*CachedEstimator)(nil)
