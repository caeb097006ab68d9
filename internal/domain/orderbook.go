package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order book side a level belongs to.
type Side string

const (
	SideAsk Side = "ask"
	SideBid Side = "bid"
)

// RawOrderBookEntry is a single price point as returned by the price estimator.
// Volume is expressed in token base units, i.e. already multiplied by
// 10^decimals of the relevant token.
type RawOrderBookEntry struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// RawOrderBook holds unsorted raw entries for both sides.
type RawOrderBook struct {
	Asks []RawOrderBookEntry `json:"asks"`
	Bids []RawOrderBookEntry `json:"bids"`
}

// ProcessedLevel is one depth-chart point.
type ProcessedLevel struct {
	Price       decimal.Decimal `json:"price"`
	Volume      decimal.Decimal `json:"volume"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
	Side        Side            `json:"side"`
}

// DepthSummary carries the headline numbers of a processed book. Pointer
// fields are nil when the side they depend on is empty.
type DepthSummary struct {
	BestAsk        *decimal.Decimal `json:"bestAsk"`
	BestBid        *decimal.Decimal `json:"bestBid"`
	Spread         *decimal.Decimal `json:"spread"`
	MidPrice       *decimal.Decimal `json:"midPrice"`
	TotalAskVolume decimal.Decimal  `json:"totalAskVolume"`
	TotalBidVolume decimal.Decimal  `json:"totalBidVolume"`
	Overlap        bool             `json:"overlap"`
}

// ProcessedOrderBook is the chart-ready dataset. Asks ascend by price and bids
// descend by price; cumulative volume grows away from the spread on both sides.
type ProcessedOrderBook struct {
	Asks    []ProcessedLevel `json:"asks"`
	Bids    []ProcessedLevel `json:"bids"`
	Summary DepthSummary     `json:"summary"`
}

// Empty reports whether neither side has liquidity.
func (b ProcessedOrderBook) Empty() bool {
	return len(b.Asks) == 0 && len(b.Bids) == 0
}

// DepthSnapshot is a processed book captured at a point in time.
type DepthSnapshot struct {
	ID        string             `json:"id"`
	Market    Market             `json:"market"`
	Book      ProcessedOrderBook `json:"book"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// EventDepthUpdate is the Type of a DepthUpdate message.
const EventDepthUpdate = "depth_update"

// DepthUpdate is published on DepthChannel(Market) whenever a market's book
// is refreshed.
type DepthUpdate struct {
	Type      string             `json:"type"`
	Channel   string             `json:"channel"`
	Market    Market             `json:"market"`
	Book      ProcessedOrderBook `json:"book"`
	FetchedAt time.Time          `json:"fetchedAt"`
}
