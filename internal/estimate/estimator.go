// Package estimate converts an amount of the exchange's reference (fee) token
// into quote-token terms using live price estimations.
package estimate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// ReferenceTokenID is the token id of the fee token amounts are expressed in.
const ReferenceTokenID = 0

var unit = decimal.NewFromInt(1)

// Option configures an Estimator.
type Option func(*Estimator)

// WithReferenceToken overrides the reference token id.
func WithReferenceToken(id int) Option {
	return func(e *Estimator) { e.refTokenID = id }
}

// Estimator tracks the conversion of a reference amount into a quote token.
//
// Every call to Estimate starts a new generation. Only the latest generation
// may move the state out of Loading; results of superseded requests are
// dropped when they arrive, and their contexts are cancelled as soon as a newer
// request starts.
type Estimator struct {
	source     domain.PriceEstimator
	refTokenID int
	logger     *slog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	state   domain.QuoteEstimate
	changed chan struct{}
	subs    map[int]chan domain.QuoteEstimate
	nextSub int
}

// New creates an idle Estimator backed by source.
func New(source domain.PriceEstimator, logger *slog.Logger, opts ...Option) *Estimator {
	e := &Estimator{
		source:     source,
		refTokenID: ReferenceTokenID,
		logger:     logger.With(slog.String("component", "estimate")),
		state:      domain.QuoteEstimate{State: domain.EstimateIdle},
		changed:    make(chan struct{}),
		subs:       make(map[int]chan domain.QuoteEstimate),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReferenceTokenID returns the token id amounts are expressed in.
func (e *Estimator) ReferenceTokenID() int { return e.refTokenID }

// Estimate re-evaluates the conversion for new inputs and returns the
// generation of the request.
//
// When quote is the reference token the result is referenceAmount and the
// price source is not consulted. Otherwise the state switches to Loading with
// no amount, and the price of one reference unit is fetched in the background
// and scaled linearly by referenceAmount. The unit price is requested instead
// of the full amount so slippage does not bend the conversion.
func (e *Estimator) Estimate(ctx context.Context, referenceAmount decimal.Decimal, network domain.NetworkID, quote domain.TokenDetails) uint64 {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	if quote.ID == e.refTokenID {
		amount := referenceAmount
		e.setLocked(domain.QuoteEstimate{Amount: &amount, State: domain.EstimateResolved})
		e.mu.Unlock()
		return gen
	}

	reqCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.setLocked(domain.QuoteEstimate{IsLoading: true, State: domain.EstimateLoading})
	e.mu.Unlock()

	go e.resolve(reqCtx, cancel, gen, referenceAmount, network, quote)
	return gen
}

func (e *Estimator) resolve(ctx context.Context, cancel context.CancelFunc, gen uint64, amount decimal.Decimal, network domain.NetworkID, quote domain.TokenDetails) {
	defer cancel()

	price, err := e.source.EstimatePrice(ctx, network, quote.ID, e.refTokenID, unit)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		e.logger.Debug("estimate: discarding stale result",
			slog.Uint64("generation", gen),
			slog.Uint64("current", e.gen),
		)
		return
	}
	e.cancel = nil

	if err != nil {
		e.logger.Warn("estimate: price estimation failed",
			slog.String("quote", quote.Label()),
			slog.String("network", network.String()),
			slog.String("error", err.Error()),
		)
		e.setLocked(domain.QuoteEstimate{State: domain.EstimateFailed})
		return
	}

	e.logger.Debug("estimate: resolved unit price",
		slog.String("quote", quote.Label()),
		slog.String("price", price.String()),
	)
	total := price.Mul(amount)
	e.setLocked(domain.QuoteEstimate{Amount: &total, State: domain.EstimateResolved})
}

// setLocked stores s and wakes waiters and subscribers. e.mu must be held.
func (e *Estimator) setLocked(s domain.QuoteEstimate) {
	e.state = s
	close(e.changed)
	e.changed = make(chan struct{})

	for _, ch := range e.subs {
		// Subscribers only care about the latest state.
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Current returns the latest state.
func (e *Estimator) Current() domain.QuoteEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Generation returns the generation of the most recent request.
func (e *Estimator) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

// Wait blocks until the estimator leaves the Loading state or ctx is done,
// and returns the state observed last.
func (e *Estimator) Wait(ctx context.Context) (domain.QuoteEstimate, error) {
	for {
		e.mu.Lock()
		s, ch := e.state, e.changed
		e.mu.Unlock()

		if !s.IsLoading {
			return s, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Subscribe returns a channel that receives every state transition. Slow
// readers only see the most recent state. The returned func unsubscribes and
// closes the channel.
func (e *Estimator) Subscribe() (<-chan domain.QuoteEstimate, func()) {
	ch := make(chan domain.QuoteEstimate, 1)

	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(ch)
		})
	}
}

// Close cancels any in-flight request.
func (e *Estimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
