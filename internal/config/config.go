// Package config defines the top-level configuration for dexdepth and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DEXDEPTH_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Estimator EstimatorConfig `toml:"estimator"`
	OrderBook OrderBookConfig `toml:"orderbook"`
	Tokens    []TokenConfig   `toml:"tokens"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is the number of requests a client IP may make per
	// RateWindow. Zero disables rate limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters. Snapshot history is
// only recorded when Enabled is set.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters used for archiving
// old depth snapshots.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EstimatorConfig points at the price-estimation service.
type EstimatorConfig struct {
	BaseURL          string   `toml:"base_url"`
	Timeout          duration `toml:"timeout"`
	ReferenceTokenID int      `toml:"reference_token_id"`
	// QuoteWait bounds how long a quote request waits for a fresh estimate.
	QuoteWait duration `toml:"quote_wait"`
	PriceTTL  duration `toml:"price_ttl"`
}

// OrderBookConfig controls depth processing and the background poller.
type OrderBookConfig struct {
	DisplayDecimals   int            `toml:"display_decimals"`
	CacheTTL          duration       `toml:"cache_ttl"`
	PollInterval      duration       `toml:"poll_interval"`
	PollConcurrency   int            `toml:"poll_concurrency"`
	Markets           []MarketConfig `toml:"markets"`
	SnapshotRetention duration       `toml:"snapshot_retention"`
	ArchiveInterval   duration       `toml:"archive_interval"`
}

// MarketConfig names a market to poll. Base and Quote accept a token id,
// symbol or address.
type MarketConfig struct {
	Network int    `toml:"network"`
	Base    string `toml:"base"`
	Quote   string `toml:"quote"`
}

// TokenConfig is one entry of the exchange token list.
type TokenConfig struct {
	ID       int    `toml:"id"`
	Name     string `toml:"name"`
	Symbol   string `toml:"symbol"`
	Address  string `toml:"address"`
	Decimals int    `toml:"decimals"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateWindow:  duration{time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "dexdepth",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "dexdepth-archive",
			ForcePathStyle: true,
		},
		Estimator: EstimatorConfig{
			BaseURL:          "https://dex-price-estimator.gnosis.io",
			Timeout:          duration{10 * time.Second},
			ReferenceTokenID: 0,
			QuoteWait:        duration{5 * time.Second},
			PriceTTL:         duration{30 * time.Second},
		},
		OrderBook: OrderBookConfig{
			DisplayDecimals:   6,
			CacheTTL:          duration{15 * time.Second},
			PollInterval:      duration{10 * time.Second},
			PollConcurrency:   4,
			SnapshotRetention: duration{30 * 24 * time.Hour},
			ArchiveInterval:   duration{time.Hour},
		},
		Tokens: []TokenConfig{
			{ID: 0, Name: "Token OWL", Symbol: "OWL", Address: "0x1A5F9352Af8aF974bFC03399e3767DF6370d82e4", Decimals: 18},
			{ID: 1, Name: "Wrapped Ether", Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
			{ID: 2, Name: "Tether USD", Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
			{ID: 4, Name: "USD Coin", Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
			{ID: 7, Name: "Dai Stablecoin", Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"poller": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validNetworks = map[int]bool{1: true, 4: true, 100: true}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, poller, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if mode != "poller" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archiving requires postgres.enabled")
		}
	}

	// Estimator
	if c.Estimator.BaseURL == "" {
		errs = append(errs, "estimator: base_url must not be empty")
	}
	if c.Estimator.Timeout.Duration <= 0 {
		errs = append(errs, "estimator: timeout must be > 0")
	}
	if c.Estimator.QuoteWait.Duration <= 0 {
		errs = append(errs, "estimator: quote_wait must be > 0")
	}

	// Order book
	if c.OrderBook.DisplayDecimals < 0 {
		errs = append(errs, "orderbook: display_decimals must be >= 0")
	}
	if mode != "server" {
		if c.OrderBook.PollInterval.Duration <= 0 {
			errs = append(errs, "orderbook: poll_interval must be > 0")
		}
		if c.OrderBook.PollConcurrency < 1 {
			errs = append(errs, "orderbook: poll_concurrency must be >= 1")
		}
		if len(c.OrderBook.Markets) == 0 {
			errs = append(errs, "orderbook: at least one market is required for mode "+c.Mode)
		}
	}
	for i, m := range c.OrderBook.Markets {
		if !validNetworks[m.Network] {
			errs = append(errs, fmt.Sprintf("orderbook: markets[%d]: unsupported network %d (valid: 1, 4, 100)", i, m.Network))
		}
		if m.Base == "" || m.Quote == "" {
			errs = append(errs, fmt.Sprintf("orderbook: markets[%d]: base and quote must be set", i))
		}
	}

	// Tokens
	if len(c.Tokens) == 0 {
		errs = append(errs, "tokens: token list must not be empty")
	}
	seen := make(map[int]bool, len(c.Tokens))
	hasReference := false
	for _, t := range c.Tokens {
		if seen[t.ID] {
			errs = append(errs, fmt.Sprintf("tokens: duplicate id %d", t.ID))
		}
		seen[t.ID] = true
		if t.ID == c.Estimator.ReferenceTokenID {
			hasReference = true
		}
	}
	if len(c.Tokens) > 0 && !hasReference {
		errs = append(errs, fmt.Sprintf("estimator: reference_token_id %d is not in the token list", c.Estimator.ReferenceTokenID))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
