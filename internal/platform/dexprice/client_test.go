package dexprice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/token"
)

func testRegistry(t *testing.T) *token.Registry {
	t.Helper()
	r, err := token.NewRegistry([]domain.TokenDetails{
		{ID: 0, Symbol: "OWL", Address: "0x1A5F9352Af8aF974bFC03399e3767DF6370d82e4", Decimals: 18},
		{ID: 1, Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
		{ID: 4, Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
	})
	require.NoError(t, err)
	return r
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, testRegistry(t), time.Second), srv
}

func TestClient_GetOrderBook(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"asks":[{"price":1500,"volume":5000000000000000000}],"bids":[{"price":"1490","volume":"3000000"}]}`))
	})

	raw, err := c.GetOrderBook(context.Background(), domain.NetworkMainnet, 1, 4)
	require.NoError(t, err)

	assert.Equal(t, "/mainnet/api/v1/markets/1-4", gotPath)
	assert.Equal(t, "atoms=true&hops=2", gotQuery)
	require.Len(t, raw.Asks, 1)
	require.Len(t, raw.Bids, 1)
	assert.True(t, raw.Asks[0].Volume.Equal(decimal.RequireFromString("5000000000000000000")))
	assert.True(t, raw.Bids[0].Price.Equal(decimal.NewFromInt(1490)))
}

func TestClient_GetOrderBook_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "boom", domain.ErrUpstream},
		{"not found", http.StatusNotFound, "no market", domain.ErrNotFound},
		{"malformed body", http.StatusOK, "{not json", domain.ErrMalformedBook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetOrderBook(context.Background(), domain.NetworkXDAI, 1, 4)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_EstimatePrice(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "true", r.URL.Query().Get("atoms"))
		// Selling 1 OWL buys 2.5 USDC.
		_, _ = w.Write([]byte(`{"baseTokenId":4,"quoteTokenId":0,"buyAmountInBase":"2500000","sellAmountInQuote":"1000000000000000000"}`))
	})

	price, err := c.EstimatePrice(context.Background(), domain.NetworkMainnet, 4, 0, decimal.NewFromInt(1))
	require.NoError(t, err)

	assert.Equal(t, "/mainnet/api/v1/markets/4-0/estimated-buy-amount/1000000000000000000", gotPath)
	assert.True(t, price.Equal(decimal.RequireFromString("2.5")), "got %s", price)
}

func TestClient_EstimatePrice_Errors(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		amount  decimal.Decimal
		body    string
		wantErr error
	}{
		{"unknown base token", 99, decimal.NewFromInt(1), `{}`, domain.ErrUnknownToken},
		{"missing field", 4, decimal.NewFromInt(1), `{"buyAmountInBase":"1"}`, domain.ErrUpstream},
		{"zero sell amount", 4, decimal.NewFromInt(1), `{"buyAmountInBase":"1","sellAmountInQuote":"0"}`, domain.ErrUpstream},
		{"bad number", 4, decimal.NewFromInt(1), `{"buyAmountInBase":"x","sellAmountInQuote":"1"}`, domain.ErrUpstream},
		{"invalid json", 4, decimal.NewFromInt(1), `[`, domain.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.EstimatePrice(context.Background(), domain.NetworkMainnet, tt.base, 0, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_EstimatePrice_RejectsNonPositiveAmount(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.EstimatePrice(context.Background(), domain.NetworkMainnet, 4, 0, decimal.Zero)
	assert.Error(t, err)
	assert.False(t, called)
}

func TestClient_HonoursContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetOrderBook(ctx, domain.NetworkMainnet, 1, 4)
	assert.ErrorIs(t, err, context.Canceled)
}
