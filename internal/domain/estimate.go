package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// EstimateState is the lifecycle of a quote conversion request.
type EstimateState string

const (
	EstimateIdle     EstimateState = "idle"
	EstimateLoading  EstimateState = "loading"
	EstimateResolved EstimateState = "resolved"
	EstimateFailed   EstimateState = "failed"
)

// QuoteEstimate is the observable result of a quote conversion. Amount is nil
// while loading and after a failure.
type QuoteEstimate struct {
	Amount    *decimal.Decimal `json:"amount"`
	IsLoading bool             `json:"isLoading"`
	State     EstimateState    `json:"state"`
}

// PriceEstimator returns how much of quoteTokenID one receives for amount of
// baseTokenID, expressed as a unit price.
type PriceEstimator interface {
	EstimatePrice(ctx context.Context, network NetworkID, baseTokenID, quoteTokenID int, amount decimal.Decimal) (decimal.Decimal, error)
}

// OrderBookSource fetches raw order books from the price estimator.
type OrderBookSource interface {
	GetOrderBook(ctx context.Context, network NetworkID, baseTokenID, quoteTokenID int) (RawOrderBook, error)
}
