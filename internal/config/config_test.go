package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.OrderBook.Markets = []MarketConfig{{Network: 1, Base: "WETH", Quote: "USDC"}}
	return cfg
}

func TestDefaults_ServerModeIsValid(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid full", func(*Config) {}, ""},
		{"unknown mode", func(c *Config) { c.Mode = "trade" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "unknown log_level"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server: port"},
		{"poller ignores port", func(c *Config) { c.Mode = "poller"; c.Server.Port = 0 }, ""},
		{"rate limit without window", func(c *Config) { c.Server.RateLimit = 10; c.Server.RateWindow.Duration = 0 }, "rate_window"},
		{"no redis", func(c *Config) { c.Redis.Addr = "" }, "redis: addr"},
		{"postgres pool", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.PoolMinConns = 20 }, "pool_min_conns"},
		{"postgres disabled skips checks", func(c *Config) { c.Postgres.Host = "" }, ""},
		{"s3 needs postgres", func(c *Config) { c.S3.Enabled = true }, "requires postgres"},
		{"no estimator url", func(c *Config) { c.Estimator.BaseURL = "" }, "estimator: base_url"},
		{"negative display decimals", func(c *Config) { c.OrderBook.DisplayDecimals = -1 }, "display_decimals"},
		{"poller needs markets", func(c *Config) { c.OrderBook.Markets = nil }, "at least one market"},
		{"server needs no markets", func(c *Config) { c.Mode = "server"; c.OrderBook.Markets = nil }, ""},
		{"bad network", func(c *Config) { c.OrderBook.Markets[0].Network = 3 }, "unsupported network"},
		{"duplicate token", func(c *Config) { c.Tokens = append(c.Tokens, c.Tokens[0]) }, "duplicate id"},
		{"missing reference token", func(c *Config) { c.Estimator.ReferenceTokenID = 42 }, "reference_token_id 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "nope"
	cfg.Redis.Addr = ""
	cfg.Estimator.BaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "estimator: base_url")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dexdepth.toml")
	content := `
mode = "poller"
log_level = "debug"

[estimator]
base_url = "http://estimator.local"
timeout = "3s"

[orderbook]
display_decimals = 4
poll_interval = "2s"

[[orderbook.markets]]
network = 100
base = "WETH"
quote = "DAI"

[[tokens]]
id = 0
symbol = "OWL"
address = "0x1A5F9352Af8aF974bFC03399e3767DF6370d82e4"

[[tokens]]
id = 1
symbol = "WETH"
address = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "poller", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://estimator.local", cfg.Estimator.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Estimator.Timeout.Duration)
	assert.Equal(t, 4, cfg.OrderBook.DisplayDecimals)
	assert.Equal(t, 2*time.Second, cfg.OrderBook.PollInterval.Duration)
	assert.Equal(t, []MarketConfig{{Network: 100, Base: "WETH", Quote: "DAI"}}, cfg.OrderBook.Markets)

	require.Len(t, cfg.Tokens, 2)
	assert.Equal(t, 0, cfg.Tokens[1].Decimals, "file tokens must not inherit default fields")

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Tokens, cfg.Tokens)
	assert.Equal(t, "full", cfg.Mode)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEXDEPTH_MODE", "server")
	t.Setenv("DEXDEPTH_SERVER_PORT", "9100")
	t.Setenv("DEXDEPTH_REDIS_TLS_ENABLED", "true")
	t.Setenv("DEXDEPTH_ESTIMATOR_QUOTE_WAIT", "750ms")
	t.Setenv("DEXDEPTH_SERVER_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DEXDEPTH_ORDERBOOK_MARKETS", "1:WETH-USDC, 100:7-4, DAI-USDC, bogus, x:1-2")
	t.Setenv("DEXDEPTH_SERVER_RATE_LIMIT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Redis.TLSEnabled)
	assert.Equal(t, 750*time.Millisecond, cfg.Estimator.QuoteWait.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, []MarketConfig{
		{Network: 1, Base: "WETH", Quote: "USDC"},
		{Network: 100, Base: "7", Quote: "4"},
		{Network: 1, Base: "DAI", Quote: "USDC"},
	}, cfg.OrderBook.Markets)
	assert.Zero(t, cfg.Server.RateLimit, "unparseable values are ignored")
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Server.APIKey = "key"
	cfg.Redis.Password = "pw"
	cfg.Postgres.DSN = "postgres://u:p@h/db"
	cfg.S3.SecretKey = "secret"

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Empty(t, out.S3.AccessKey, "empty secrets stay empty")
	assert.Equal(t, "key", cfg.Server.APIKey)

	out.OrderBook.Markets[0].Base = "changed"
	assert.Equal(t, "WETH", cfg.OrderBook.Markets[0].Base)
}
