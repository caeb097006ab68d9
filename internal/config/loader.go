package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEXDEPTH_* environment variable overrides, and
// returns the final Config. A missing file leaves the defaults in place. The
// returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	// Token entries from the file must not inherit fields from the default
	// list, so the defaults are only restored when the file has none.
	defaultTokens := cfg.Tokens
	cfg.Tokens = nil
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if len(cfg.Tokens) == 0 {
		cfg.Tokens = defaultTokens
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEXDEPTH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "DEXDEPTH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "DEXDEPTH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "DEXDEPTH_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "DEXDEPTH_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "DEXDEPTH_SERVER_RATE_WINDOW")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "DEXDEPTH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXDEPTH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXDEPTH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEXDEPTH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEXDEPTH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEXDEPTH_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "DEXDEPTH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DEXDEPTH_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "DEXDEPTH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DEXDEPTH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DEXDEPTH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DEXDEPTH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DEXDEPTH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DEXDEPTH_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DEXDEPTH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DEXDEPTH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "DEXDEPTH_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "DEXDEPTH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "DEXDEPTH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DEXDEPTH_S3_REGION")
	setStr(&cfg.S3.Bucket, "DEXDEPTH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DEXDEPTH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DEXDEPTH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DEXDEPTH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DEXDEPTH_S3_FORCE_PATH_STYLE")

	// ── Estimator ──
	setStr(&cfg.Estimator.BaseURL, "DEXDEPTH_ESTIMATOR_BASE_URL")
	setDuration(&cfg.Estimator.Timeout, "DEXDEPTH_ESTIMATOR_TIMEOUT")
	setInt(&cfg.Estimator.ReferenceTokenID, "DEXDEPTH_ESTIMATOR_REFERENCE_TOKEN_ID")
	setDuration(&cfg.Estimator.QuoteWait, "DEXDEPTH_ESTIMATOR_QUOTE_WAIT")
	setDuration(&cfg.Estimator.PriceTTL, "DEXDEPTH_ESTIMATOR_PRICE_TTL")

	// ── Order book ──
	setInt(&cfg.OrderBook.DisplayDecimals, "DEXDEPTH_ORDERBOOK_DISPLAY_DECIMALS")
	setDuration(&cfg.OrderBook.CacheTTL, "DEXDEPTH_ORDERBOOK_CACHE_TTL")
	setDuration(&cfg.OrderBook.PollInterval, "DEXDEPTH_ORDERBOOK_POLL_INTERVAL")
	setInt(&cfg.OrderBook.PollConcurrency, "DEXDEPTH_ORDERBOOK_POLL_CONCURRENCY")
	setDuration(&cfg.OrderBook.SnapshotRetention, "DEXDEPTH_ORDERBOOK_SNAPSHOT_RETENTION")
	setDuration(&cfg.OrderBook.ArchiveInterval, "DEXDEPTH_ORDERBOOK_ARCHIVE_INTERVAL")
	setMarkets(&cfg.OrderBook.Markets, "DEXDEPTH_ORDERBOOK_MARKETS")

	// ── Top-level ──
	setStr(&cfg.Mode, "DEXDEPTH_MODE")
	setStr(&cfg.LogLevel, "DEXDEPTH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		if cleaned := splitList(v); len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

// setMarkets parses "network:base-quote" entries, e.g. "1:WETH-USDC,100:7-4".
// A missing network prefix means mainnet. Malformed entries are skipped.
func setMarkets(dst *[]MarketConfig, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var markets []MarketConfig
	for _, entry := range splitList(v) {
		network := 1
		pair := entry
		if n, rest, ok := strings.Cut(entry, ":"); ok {
			id, err := strconv.Atoi(n)
			if err != nil {
				continue
			}
			network, pair = id, rest
		}
		base, quote, ok := strings.Cut(pair, "-")
		if !ok || base == "" || quote == "" {
			continue
		}
		markets = append(markets, MarketConfig{Network: network, Base: base, Quote: quote})
	}
	if len(markets) > 0 {
		*dst = markets
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
