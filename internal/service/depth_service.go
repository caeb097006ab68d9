package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/orderbook"
)

// DepthService turns raw order books from the price estimator into
// depth-chart data, caching, recording and broadcasting each refresh.
type DepthService struct {
	source    domain.OrderBookSource
	tokens    domain.TokenRegistry
	processor orderbook.Processor
	cache     domain.DepthCache
	snapshots domain.DepthSnapshotStore
	bus       domain.SignalBus
	logger    *slog.Logger
	now       func() time.Time
}

// NewDepthService creates a DepthService. cache, snapshots and bus may be nil,
// in which case the corresponding step is skipped.
func NewDepthService(
	source domain.OrderBookSource,
	tokens domain.TokenRegistry,
	processor orderbook.Processor,
	cache domain.DepthCache,
	snapshots domain.DepthSnapshotStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *DepthService {
	return &DepthService{
		source:    source,
		tokens:    tokens,
		processor: processor,
		cache:     cache,
		snapshots: snapshots,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
	}
}

// ResolveMarket resolves token references (id, symbol or address) to a
// market on network.
func (s *DepthService) ResolveMarket(network domain.NetworkID, baseRef, quoteRef string) (domain.Market, error) {
	rm, err := ResolveMarket(s.tokens, network, baseRef, quoteRef)
	if err != nil {
		return domain.Market{}, err
	}
	return rm.Market, nil
}

// Depth returns the processed book of a market, serving it from the cache
// when possible.
func (s *DepthService) Depth(ctx context.Context, market domain.Market) (domain.ProcessedOrderBook, error) {
	if _, err := resolveByID(s.tokens, market); err != nil {
		return domain.ProcessedOrderBook{}, err
	}

	if s.cache != nil {
		book, err := s.cache.Get(ctx, market)
		if err == nil {
			return book, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "depth_service: cache get failed",
				slog.String("market", market.Key()),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.Refresh(ctx, market)
}

// Refresh fetches and processes the book of a market, bypassing the cache.
// Cache, persistence and publish failures are logged and do not fail the
// refresh.
func (s *DepthService) Refresh(ctx context.Context, market domain.Market) (domain.ProcessedOrderBook, error) {
	rm, err := resolveByID(s.tokens, market)
	if err != nil {
		return domain.ProcessedOrderBook{}, err
	}

	raw, err := s.source.GetOrderBook(ctx, market.Network, market.BaseTokenID, market.QuoteTokenID)
	if err != nil {
		return domain.ProcessedOrderBook{}, fmt.Errorf("depth_service: fetch %s: %w", market.Key(), err)
	}
	fetchedAt := s.now().UTC()

	book := s.processor.Process(raw, rm.Base, rm.Quote)

	s.logger.DebugContext(ctx, "depth_service: processed book",
		slog.String("market", rm.Base.Label()+"-"+rm.Quote.Label()),
		slog.Int("asks", len(book.Asks)),
		slog.Int("bids", len(book.Bids)),
		slog.Bool("overlap", book.Summary.Overlap),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, market, book); err != nil {
			s.logger.WarnContext(ctx, "depth_service: cache set failed",
				slog.String("market", market.Key()),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.snapshots != nil {
		snap := domain.DepthSnapshot{
			ID:        uuid.NewString(),
			Market:    market,
			Book:      book,
			FetchedAt: fetchedAt,
		}
		if err := s.snapshots.Insert(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "depth_service: snapshot insert failed",
				slog.String("market", market.Key()),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		s.publish(ctx, market, book, fetchedAt)
	}

	return book, nil
}

// Latest returns the most recently recorded snapshot of a market.
func (s *DepthService) Latest(ctx context.Context, market domain.Market) (domain.DepthSnapshot, error) {
	if _, err := resolveByID(s.tokens, market); err != nil {
		return domain.DepthSnapshot{}, err
	}
	if s.snapshots == nil {
		return domain.DepthSnapshot{}, fmt.Errorf("depth_service: snapshot history disabled: %w", domain.ErrNotFound)
	}
	snap, err := s.snapshots.Latest(ctx, market)
	if err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("depth_service: latest %s: %w", market.Key(), err)
	}
	return snap, nil
}

func (s *DepthService) publish(ctx context.Context, market domain.Market, book domain.ProcessedOrderBook, fetchedAt time.Time) {
	channel := domain.DepthChannel(market)
	payload, err := json.Marshal(domain.DepthUpdate{
		Type:      domain.EventDepthUpdate,
		Channel:   channel,
		Market:    market,
		Book:      book,
		FetchedAt: fetchedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "depth_service: encode update failed",
			slog.String("market", market.Key()),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "depth_service: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
