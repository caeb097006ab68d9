package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/price"
)

// QuoteService converts reference-token amounts into other tokens.
type QuoteService interface {
	Quote(ctx context.Context, network domain.NetworkID, quoteRef string, amount decimal.Decimal) (domain.QuoteEstimate, error)
}

// QuoteHandler serves reference-token conversions.
type QuoteHandler struct {
	quotes QuoteService
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(quotes QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

type quoteResponse struct {
	Network domain.NetworkID `json:"network"`
	Quote   string           `json:"quote"`
	Input   decimal.Decimal  `json:"input"`
	domain.QuoteEstimate
}

// GetQuote converts amount of the reference token into {quote}. A still
// loading estimate is answered with 202.
// GET /api/quote/{network}/{quote}?amount=100
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	network, err := networkParam(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "get quote", err)
		return
	}
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		raw = "1"
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !price.InRange(amount) {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	quoteRef := pathParam(r, "quote")
	est, err := h.quotes.Quote(r.Context(), network, quoteRef, amount)
	if err != nil {
		writeServiceError(w, r, h.logger, "get quote", err)
		return
	}

	status := http.StatusOK
	if est.IsLoading {
		status = http.StatusAccepted
	}
	writeJSON(w, status, quoteResponse{
		Network:       network,
		Quote:         quoteRef,
		Input:         amount,
		QuoteEstimate: est,
	})
}
