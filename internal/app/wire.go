package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/dexdepth/internal/blob/s3"
	"github.com/alanyoungcy/dexdepth/internal/cache/redis"
	"github.com/alanyoungcy/dexdepth/internal/config"
	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/platform/dexprice"
	"github.com/alanyoungcy/dexdepth/internal/store/postgres"
	"github.com/alanyoungcy/dexdepth/internal/token"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Optional backends are nil when disabled.
type Dependencies struct {
	Tokens    *token.Registry
	Estimator *dexprice.Client

	// Caches
	DepthCache  domain.DepthCache
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Persistence
	Snapshots domain.DepthSnapshotStore
	Archiver  domain.Archiver

	// Pingers backs the health check.
	Pingers map[string]func(ctx context.Context) error
}

// tokenDetails converts the configured token list.
func tokenDetails(cfg []config.TokenConfig) []domain.TokenDetails {
	out := make([]domain.TokenDetails, 0, len(cfg))
	for _, t := range cfg {
		out = append(out, domain.TokenDetails{
			ID:       t.ID,
			Name:     t.Name,
			Symbol:   t.Symbol,
			Address:  t.Address,
			Decimals: t.Decimals,
		})
	}
	return out
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Pingers: make(map[string]func(ctx context.Context) error)}

	tokens, err := token.NewRegistry(tokenDetails(cfg.Tokens))
	if err != nil {
		return nil, nil, fmt.Errorf("wire: tokens: %w", err)
	}
	deps.Tokens = tokens
	deps.Estimator = dexprice.NewClient(cfg.Estimator.BaseURL, tokens, cfg.Estimator.Timeout.Duration)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.Pingers["redis"] = redisClient.Ping

	deps.DepthCache = redis.NewDepthCache(redisClient, cfg.OrderBook.CacheTTL.Duration)
	deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Estimator.PriceTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- PostgreSQL snapshot history ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)
		deps.Pingers["postgres"] = pgClient.Ping

		if cfg.Postgres.RunMigrations {
			n, err := pgClient.RunMigrations(ctx)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			logger.InfoContext(ctx, "wire: migrations applied", slog.Int("files", n))
		}

		deps.Snapshots = postgres.NewDepthSnapshotStore(pgClient.Pool())
	}

	// --- S3 archive (requires Postgres, enforced by config validation) ---
	if cfg.S3.Enabled && deps.Snapshots != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Pingers["s3"] = s3Client.Health

		deps.Archiver = s3blob.NewSnapshotArchiver(
			deps.Snapshots,
			s3blob.NewReader(s3Client),
			s3blob.NewWriter(s3Client),
			logger,
		)
	}

	return deps, cleanup, nil
}
