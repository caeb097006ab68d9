package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexdepth/internal/config"
	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/token"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenDetailsFromDefaults(t *testing.T) {
	cfg := config.Defaults()
	tokens, err := token.NewRegistry(tokenDetails(cfg.Tokens))
	require.NoError(t, err)
	assert.Len(t, tokens.List(), len(cfg.Tokens))

	_, err = tokens.ByID(cfg.Estimator.ReferenceTokenID)
	assert.NoError(t, err)
}

func TestResolveMarkets(t *testing.T) {
	tokens, err := token.NewRegistry(tokenDetails(config.Defaults().Tokens))
	require.NoError(t, err)

	markets, err := resolveMarkets(tokens, []config.MarketConfig{
		{Network: 1, Base: "WETH", Quote: "DAI"},
		{Network: 1, Base: "1", Quote: "7"},
		{Network: 100, Base: "WETH", Quote: "USDC"},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Market{
		{Network: 1, BaseTokenID: 1, QuoteTokenID: 7},
		{Network: 100, BaseTokenID: 1, QuoteTokenID: 4},
	}, markets)

	_, err = resolveMarkets(tokens, []config.MarketConfig{{Network: 1, Base: "WETH", Quote: "NOPE"}})
	assert.ErrorIs(t, err, domain.ErrUnknownToken)

	_, err = resolveMarkets(tokens, []config.MarketConfig{{Network: 5, Base: "WETH", Quote: "DAI"}})
	assert.ErrorIs(t, err, domain.ErrInvalidMarket)
}

type stubArchiver struct {
	n      int64
	err    error
	before time.Time
	calls  int
}

func (s *stubArchiver) ArchiveSnapshots(_ context.Context, before time.Time) (int64, error) {
	s.calls++
	s.before = before
	return s.n, s.err
}

type stubLocks struct {
	err      error
	released bool
}

func (l *stubLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released = true }, nil
}

func TestArchiveOnce(t *testing.T) {
	before := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	arch := &stubArchiver{n: 12}
	locks := &stubLocks{}
	assert.EqualValues(t, 12, archiveOnce(ctx, locks, arch, time.Hour, before, testLogger()))
	assert.Equal(t, before, arch.before)
	assert.True(t, locks.released)

	held := &stubLocks{err: fmt.Errorf("lock: %w", domain.ErrLockHeld)}
	arch = &stubArchiver{}
	assert.EqualValues(t, -1, archiveOnce(ctx, held, arch, time.Hour, before, testLogger()))
	assert.Zero(t, arch.calls)

	arch = &stubArchiver{err: errors.New("s3 down")}
	assert.EqualValues(t, -1, archiveOnce(ctx, nil, arch, time.Hour, before, testLogger()))
	assert.Equal(t, 1, arch.calls)
}

func TestPollHandler(t *testing.T) {
	assert.Nil(t, pollHandler(nil, testLogger()))

	trigger := make(chan struct{}, 1)
	assert.NotNil(t, pollHandler(trigger, testLogger()))
}
