// Package feed keeps the depth cache warm by polling the price estimator for
// a configured set of markets.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// DefaultConcurrency bounds the number of markets refreshed at once when
// PollerConfig.Concurrency is unset.
const DefaultConcurrency = 4

// Refresher fetches, processes and publishes the book of one market.
type Refresher interface {
	Refresh(ctx context.Context, market domain.Market) (domain.ProcessedOrderBook, error)
}

// PollerConfig controls a DepthPoller.
type PollerConfig struct {
	Markets     []domain.Market
	Interval    time.Duration
	Concurrency int
}

// DepthPoller refreshes every configured market once per interval. With a
// LockManager, a market is refreshed by at most one instance per interval:
// the lock is left to expire rather than released.
type DepthPoller struct {
	refresher Refresher
	locks     domain.LockManager
	cfg       PollerConfig
	trigger   <-chan struct{}
	logger    *slog.Logger
}

// NewDepthPoller creates a DepthPoller. locks may be nil for single-instance
// deployments.
func NewDepthPoller(refresher Refresher, locks domain.LockManager, cfg PollerConfig, logger *slog.Logger) *DepthPoller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &DepthPoller{
		refresher: refresher,
		locks:     locks,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "depth_poller")),
	}
}

// WithTrigger sets a channel on which each receive requests an immediate poll.
func (p *DepthPoller) WithTrigger(ch <-chan struct{}) *DepthPoller {
	p.trigger = ch
	return p
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (p *DepthPoller) Run(ctx context.Context) error {
	if len(p.cfg.Markets) == 0 {
		p.logger.InfoContext(ctx, "depth poller: no markets configured")
		<-ctx.Done()
		return nil
	}

	p.logger.InfoContext(ctx, "depth poller started",
		slog.Int("markets", len(p.cfg.Markets)),
		slog.Duration("interval", p.cfg.Interval),
		slog.Int("concurrency", p.cfg.Concurrency),
	)
	defer p.logger.Info("depth poller stopped")

	p.PollOnce(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.PollOnce(ctx)
		case <-p.trigger:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce refreshes all markets and returns the number refreshed
// successfully. Per-market failures are logged.
func (p *DepthPoller) PollOnce(ctx context.Context) int {
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	results := make([]bool, len(p.cfg.Markets))
	for i, m := range p.cfg.Markets {
		g.Go(func() error {
			results[i] = p.poll(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r {
			ok++
		}
	}
	p.logger.DebugContext(ctx, "depth poller: cycle complete",
		slog.Int("refreshed", ok),
		slog.Int("markets", len(p.cfg.Markets)),
	)
	return ok
}

func (p *DepthPoller) poll(ctx context.Context, m domain.Market) bool {
	if ctx.Err() != nil {
		return false
	}

	if p.locks != nil {
		if _, err := p.locks.Acquire(ctx, "poll:"+m.Key(), p.cfg.Interval); err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				p.logger.WarnContext(ctx, "depth poller: lock failed",
					slog.String("market", m.Key()),
					slog.String("error", err.Error()),
				)
			}
			return false
		}
	}

	book, err := p.refresher.Refresh(ctx, m)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.WarnContext(ctx, "depth poller: refresh failed",
				slog.String("market", m.Key()),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	p.logger.DebugContext(ctx, "depth poller: refreshed",
		slog.String("market", m.Key()),
		slog.Int("asks", len(book.Asks)),
		slog.Int("bids", len(book.Bids)),
	)
	return true
}
