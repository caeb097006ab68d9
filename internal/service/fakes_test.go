package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/token"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens(t *testing.T) *token.Registry {
	t.Helper()
	r, err := token.NewRegistry([]domain.TokenDetails{
		{ID: 0, Symbol: "OWL", Address: "0x1A5F9352Af8aF974bFC03399e3767DF6370d82e4", Decimals: 18},
		{ID: 1, Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
		{ID: 4, Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
	})
	require.NoError(t, err)
	return r
}

type fakeSource struct {
	mu    sync.Mutex
	book  domain.RawOrderBook
	err   error
	calls int
}

func (f *fakeSource) GetOrderBook(_ context.Context, _ domain.NetworkID, _, _ int) (domain.RawOrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.book, f.err
}

type fakeDepthCache struct {
	mu     sync.Mutex
	books  map[domain.Market]domain.ProcessedOrderBook
	getErr error
	setErr error
}

func newFakeDepthCache() *fakeDepthCache {
	return &fakeDepthCache{books: make(map[domain.Market]domain.ProcessedOrderBook)}
}

func (f *fakeDepthCache) Set(_ context.Context, m domain.Market, b domain.ProcessedOrderBook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.books[m] = b
	return nil
}

func (f *fakeDepthCache) Get(_ context.Context, m domain.Market) (domain.ProcessedOrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.ProcessedOrderBook{}, f.getErr
	}
	b, ok := f.books[m]
	if !ok {
		return domain.ProcessedOrderBook{}, domain.ErrNotFound
	}
	return b, nil
}

type fakeSnapshots struct {
	mu    sync.Mutex
	snaps []domain.DepthSnapshot
	err   error
}

func (f *fakeSnapshots) Insert(_ context.Context, s domain.DepthSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.snaps = append(f.snaps, s)
	return nil
}

func (f *fakeSnapshots) Latest(_ context.Context, m domain.Market) (domain.DepthSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.snaps) - 1; i >= 0; i-- {
		if f.snaps[i].Market == m {
			return f.snaps[i], nil
		}
	}
	return domain.DepthSnapshot{}, domain.ErrNotFound
}

func (f *fakeSnapshots) ListBefore(context.Context, time.Time) ([]domain.DepthSnapshot, error) {
	return nil, nil
}

func (f *fakeSnapshots) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{channel, payload})
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

type fakeEstimator struct {
	mu    sync.Mutex
	price decimal.Decimal
	err   error
	calls int
	block chan struct{}
}

func (f *fakeEstimator) EstimatePrice(ctx context.Context, _ domain.NetworkID, _, _ int, _ decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.err
}

func (f *fakeEstimator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePriceCache struct {
	mu     sync.Mutex
	prices map[domain.Market]decimal.Decimal
	at     map[domain.Market]time.Time
	now    func() time.Time
}

func newFakePriceCache(now func() time.Time) *fakePriceCache {
	return &fakePriceCache{
		prices: make(map[domain.Market]decimal.Decimal),
		at:     make(map[domain.Market]time.Time),
		now:    now,
	}
}

func (f *fakePriceCache) SetPrice(_ context.Context, m domain.Market, p decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[m] = p
	f.at[m] = f.now()
	return nil
}

func (f *fakePriceCache) GetPrice(_ context.Context, m domain.Market) (decimal.Decimal, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[m]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	return p, f.at[m], nil
}
