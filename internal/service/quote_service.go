package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/estimate"
	"github.com/alanyoungcy/dexdepth/internal/price"
)

// QuoteService converts reference-token amounts into quote tokens. It keeps
// one estimator per network and quote token so repeated requests for the same
// conversion share in-flight work.
type QuoteService struct {
	source     domain.PriceEstimator
	tokens     domain.TokenRegistry
	refTokenID int
	wait       time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	entries map[quoteKey]*quoteEntry
}

type quoteKey struct {
	network domain.NetworkID
	quoteID int
}

type quoteEntry struct {
	// mu serialises Estimate+Wait so concurrent callers with different
	// amounts do not supersede each other's requests.
	mu     sync.Mutex
	est    *estimate.Estimator
	amount decimal.Decimal
}

// NewQuoteService creates a QuoteService. wait bounds how long Quote blocks
// for a fresh estimate.
func NewQuoteService(source domain.PriceEstimator, tokens domain.TokenRegistry, refTokenID int, wait time.Duration, logger *slog.Logger) *QuoteService {
	return &QuoteService{
		source:     source,
		tokens:     tokens,
		refTokenID: refTokenID,
		wait:       wait,
		logger:     logger,
		entries:    make(map[quoteKey]*quoteEntry),
	}
}

// Quote converts amount of the reference token into the quote token named by
// quoteRef. When the estimate does not settle within the configured wait the
// loading state is returned without error.
func (s *QuoteService) Quote(ctx context.Context, network domain.NetworkID, quoteRef string, amount decimal.Decimal) (domain.QuoteEstimate, error) {
	if !network.Valid() {
		return domain.QuoteEstimate{}, fmt.Errorf("quote_service: network %d: %w", int(network), domain.ErrInvalidMarket)
	}
	if !price.InRange(amount) {
		return domain.QuoteEstimate{}, fmt.Errorf("quote_service: amount exponent %d: %w", amount.Exponent(), domain.ErrInvalidAmount)
	}
	if amount.IsNegative() {
		return domain.QuoteEstimate{}, fmt.Errorf("quote_service: amount %s: %w", amount, domain.ErrInvalidAmount)
	}
	quote, err := s.tokens.Resolve(quoteRef)
	if err != nil {
		return domain.QuoteEstimate{}, fmt.Errorf("quote_service: %w", err)
	}

	e := s.entry(network, quote.ID)
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.est.Current()
	pending := cur.IsLoading && amount.Equal(e.amount)
	if !pending {
		e.amount = amount
		// The request outlives this call so a later caller can pick up the
		// result; superseding requests cancel it.
		e.est.Estimate(context.WithoutCancel(ctx), amount, network, quote)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()

	result, err := e.est.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.InfoContext(ctx, "quote_service: estimate still loading",
				slog.String("quote", quote.Label()),
				slog.Duration("wait", s.wait),
			)
			return result, nil
		}
		return domain.QuoteEstimate{}, fmt.Errorf("quote_service: wait: %w", err)
	}
	return result, nil
}

func (s *QuoteService) entry(network domain.NetworkID, quoteID int) *quoteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := quoteKey{network: network, quoteID: quoteID}
	e, ok := s.entries[key]
	if !ok {
		e = &quoteEntry{
			est: estimate.New(s.source, s.logger, estimate.WithReferenceToken(s.refTokenID)),
		}
		s.entries[key] = e
	}
	return e
}

// Close cancels all in-flight estimates.
func (s *QuoteService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.est.Close()
	}
}
