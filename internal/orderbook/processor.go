// Package orderbook turns raw price-estimator order books into cumulative
// depth curves ready for charting.
package orderbook

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// DefaultDisplayDecimals is the number of fractional digits a depth chart
// shows. Raw volumes worth less than one unit of the last displayed digit are
// treated as dust.
const DefaultDisplayDecimals = 6

// treeDegree is the btree node degree used for the per-side level index.
const treeDegree = 16

// Processor converts raw books into processed books. The zero value drops
// any volume below one whole token; use New or Default for chart-sized dust
// limits.
type Processor struct {
	// DisplayDecimals bounds the dust threshold: a scaled volume below
	// 10^(decimals-DisplayDecimals) base units is dropped.
	DisplayDecimals int
}

// New returns a Processor with the given display precision. Negative values
// are clamped to zero.
func New(displayDecimals int) Processor {
	if displayDecimals < 0 {
		displayDecimals = 0
	}
	return Processor{DisplayDecimals: displayDecimals}
}

// Default returns a Processor using DefaultDisplayDecimals.
func Default() Processor {
	return New(DefaultDisplayDecimals)
}

// Process runs the default Processor.
func Process(raw domain.RawOrderBook, base, quote domain.TokenDetails) domain.ProcessedOrderBook {
	return Default().Process(raw, base, quote)
}

// Process filters, merges, sorts, and accumulates both sides of raw. Ask
// volumes are scaled by the base token's decimals and bid volumes by the
// quote token's decimals. Either side may come back empty.
func (p Processor) Process(raw domain.RawOrderBook, base, quote domain.TokenDetails) domain.ProcessedOrderBook {
	asks := p.side(raw.Asks, base.Decimals, domain.SideAsk)
	bids := p.side(raw.Bids, quote.Decimals, domain.SideBid)
	return domain.ProcessedOrderBook{
		Asks:    asks,
		Bids:    bids,
		Summary: summarize(asks, bids),
	}
}

// MinVolume returns the smallest scaled volume kept for a token with the
// given decimals.
func (p Processor) MinVolume(decimals int) decimal.Decimal {
	exp := decimals - p.DisplayDecimals
	if exp < 0 {
		exp = 0
	}
	return decimal.New(1, int32(exp))
}

type level struct {
	price  decimal.Decimal
	volume decimal.Decimal
}

func (p Processor) side(entries []domain.RawOrderBookEntry, decimals int, side domain.Side) []domain.ProcessedLevel {
	if decimals < 0 {
		decimals = 0
	}
	minVolume := p.MinVolume(decimals)

	// Asks ascend and bids descend, so iterating the tree always walks away
	// from the spread.
	less := func(a, b level) bool { return a.price.LessThan(b.price) }
	if side == domain.SideBid {
		less = func(a, b level) bool { return a.price.GreaterThan(b.price) }
	}
	tree := btree.NewG[level](treeDegree, less)

	for _, e := range entries {
		if !e.Price.IsPositive() || e.Volume.LessThan(minVolume) {
			continue
		}
		lvl := level{price: e.Price, volume: e.Volume}
		if existing, ok := tree.Get(lvl); ok {
			lvl.volume = existing.volume.Add(e.Volume)
		}
		tree.ReplaceOrInsert(lvl)
	}

	out := make([]domain.ProcessedLevel, 0, tree.Len())
	total := decimal.Zero
	shift := int32(-decimals)
	tree.Ascend(func(l level) bool {
		vol := l.volume.Shift(shift)
		total = total.Add(vol)
		out = append(out, domain.ProcessedLevel{
			Price:       l.price,
			Volume:      vol,
			TotalVolume: total,
			Side:        side,
		})
		return true
	})
	return out
}

var two = decimal.NewFromInt(2)

func summarize(asks, bids []domain.ProcessedLevel) domain.DepthSummary {
	s := domain.DepthSummary{
		TotalAskVolume: decimal.Zero,
		TotalBidVolume: decimal.Zero,
	}
	if n := len(asks); n > 0 {
		best := asks[0].Price
		s.BestAsk = &best
		s.TotalAskVolume = asks[n-1].TotalVolume
	}
	if n := len(bids); n > 0 {
		best := bids[0].Price
		s.BestBid = &best
		s.TotalBidVolume = bids[n-1].TotalVolume
	}
	if s.BestAsk != nil && s.BestBid != nil {
		spread := s.BestAsk.Sub(*s.BestBid)
		mid := s.BestAsk.Add(*s.BestBid).Div(two)
		s.Spread = &spread
		s.MidPrice = &mid
		s.Overlap = !s.BestBid.LessThan(*s.BestAsk)
	}
	return s
}
