package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/dexdepth/internal/config"
	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/feed"
	"github.com/alanyoungcy/dexdepth/internal/orderbook"
	"github.com/alanyoungcy/dexdepth/internal/server"
	"github.com/alanyoungcy/dexdepth/internal/server/handler"
	"github.com/alanyoungcy/dexdepth/internal/server/ws"
	"github.com/alanyoungcy/dexdepth/internal/service"
)

// archiveLockKey guards the archiver so one instance runs it at a time.
const archiveLockKey = "archive:snapshots"

const shutdownTimeout = 5 * time.Second

// services are the domain services shared by every mode.
type services struct {
	depth  *service.DepthService
	quotes *service.QuoteService
	prices *service.PriceService
}

func (a *App) buildServices(deps *Dependencies) (*services, error) {
	if _, err := deps.Tokens.ByID(a.cfg.Estimator.ReferenceTokenID); err != nil {
		return nil, fmt.Errorf("reference token: %w", err)
	}
	estimator := service.NewCachedEstimator(deps.Estimator, deps.PriceCache, a.cfg.Estimator.PriceTTL.Duration, a.logger)
	return &services{
		depth: service.NewDepthService(
			deps.Estimator,
			deps.Tokens,
			orderbook.New(a.cfg.OrderBook.DisplayDecimals),
			deps.DepthCache,
			deps.Snapshots,
			deps.SignalBus,
			a.logger,
		),
		quotes: service.NewQuoteService(
			estimator,
			deps.Tokens,
			a.cfg.Estimator.ReferenceTokenID,
			a.cfg.Estimator.QuoteWait.Duration,
			a.logger,
		),
		prices: service.NewPriceService(),
	}, nil
}

// ServerMode serves the HTTP API and WebSocket feed.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting server mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svc, nil)
	return g.Wait()
}

// PollerMode refreshes the configured markets and, when enabled, archives old
// snapshots.
func (a *App) PollerMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting poller mode")
	g, ctx := errgroup.WithContext(ctx)
	if err := a.startWorkers(ctx, g, deps, svc, nil); err != nil {
		return fmt.Errorf("poller mode: %w", err)
	}
	return g.Wait()
}

// FullMode runs the poller, archiver and HTTP server in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting full mode")
	g, ctx := errgroup.WithContext(ctx)
	// POST /api/orderbook/poll sends on pollTrigger to run one extra cycle.
	pollTrigger := make(chan struct{}, 1)
	if err := a.startWorkers(ctx, g, deps, svc, pollTrigger); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	a.startHTTPServer(ctx, g, deps, svc, pollTrigger)
	return g.Wait()
}

// startWorkers adds the depth poller and, when enabled, the archiver to g.
// pollTrigger may be nil.
func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *services, pollTrigger <-chan struct{}) error {
	markets, err := resolveMarkets(deps.Tokens, a.cfg.OrderBook.Markets)
	if err != nil {
		return err
	}

	poller := feed.NewDepthPoller(svc.depth, deps.LockManager, feed.PollerConfig{
		Markets:     markets,
		Interval:    a.cfg.OrderBook.PollInterval.Duration,
		Concurrency: a.cfg.OrderBook.PollConcurrency,
	}, a.logger)
	if pollTrigger != nil {
		poller.WithTrigger(pollTrigger)
	}
	g.Go(func() error {
		return poller.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			a.runArchiver(ctx, deps.LockManager, deps.Archiver)
			return nil
		})
	} else {
		a.logger.InfoContext(ctx, "archiver: s3 or postgres disabled, snapshots are kept in the database")
	}
	return nil
}

func pollHandler(trigger chan<- struct{}, logger *slog.Logger) *handler.PollHandler {
	if trigger == nil {
		return nil
	}
	return handler.NewPollHandler(trigger, logger)
}

// resolveMarkets turns configured token references into markets.
func resolveMarkets(tokens domain.TokenRegistry, cfg []config.MarketConfig) ([]domain.Market, error) {
	out := make([]domain.Market, 0, len(cfg))
	seen := make(map[domain.Market]bool, len(cfg))
	for _, mc := range cfg {
		rm, err := service.ResolveMarket(tokens, domain.NetworkID(mc.Network), mc.Base, mc.Quote)
		if err != nil {
			return nil, fmt.Errorf("market %d:%s-%s: %w", mc.Network, mc.Base, mc.Quote, err)
		}
		if seen[rm.Market] {
			continue
		}
		seen[rm.Market] = true
		out = append(out, rm.Market)
	}
	return out, nil
}

func (a *App) runArchiver(ctx context.Context, locks domain.LockManager, archiver domain.Archiver) {
	interval := a.cfg.OrderBook.ArchiveInterval.Duration
	retention := a.cfg.OrderBook.SnapshotRetention.Duration

	a.logger.InfoContext(ctx, "archiver started",
		slog.Duration("interval", interval),
		slog.Duration("retention", retention),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			archiveOnce(ctx, locks, archiver, interval, time.Now().Add(-retention), a.logger)
		}
	}
}

// archiveOnce archives snapshots older than before while holding the archive
// lock. It reports the number archived; -1 means another instance held the
// lock or the run failed.
func archiveOnce(ctx context.Context, locks domain.LockManager, archiver domain.Archiver, ttl time.Duration, before time.Time, logger *slog.Logger) int64 {
	if locks != nil {
		unlock, err := locks.Acquire(ctx, archiveLockKey, ttl)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				logger.WarnContext(ctx, "archiver: lock failed", slog.String("error", err.Error()))
			}
			return -1
		}
		defer unlock()
	}

	n, err := archiver.ArchiveSnapshots(ctx, before)
	if err != nil {
		logger.ErrorContext(ctx, "archiver: run failed",
			slog.Time("before", before),
			slog.String("error", err.Error()),
		)
		return -1
	}
	if n > 0 {
		logger.InfoContext(ctx, "archiver: snapshots archived",
			slog.Int64("count", n),
			slog.Time("before", before),
		)
	}
	return n
}

// startHTTPServer adds the HTTP server and WebSocket hub to g. The server is
// shut down gracefully when ctx is cancelled. The poll endpoint is only
// registered when pollTrigger is non-nil.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *services, pollTrigger chan<- struct{}) {
	pingers := make(map[string]handler.Pinger, len(deps.Pingers))
	for name, ping := range deps.Pingers {
		pingers[name] = handler.PingFunc(ping)
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health: handler.NewHealthHandler(pingers, a.logger),
		Tokens: handler.NewTokenHandler(deps.Tokens, a.logger),
		Depth:  handler.NewDepthHandler(svc.depth, a.logger),
		Price:  handler.NewPriceHandler(svc.prices),
		Quote:  handler.NewQuoteHandler(svc.quotes, a.logger),
		Poll:   pollHandler(pollTrigger, a.logger),
	}, deps.RateLimiter, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
