package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// DepthService is what the depth handler needs from the service layer.
type DepthService interface {
	ResolveMarket(network domain.NetworkID, baseRef, quoteRef string) (domain.Market, error)
	Depth(ctx context.Context, market domain.Market) (domain.ProcessedOrderBook, error)
	Refresh(ctx context.Context, market domain.Market) (domain.ProcessedOrderBook, error)
	Latest(ctx context.Context, market domain.Market) (domain.DepthSnapshot, error)
}

// DepthHandler serves depth-chart data.
type DepthHandler struct {
	depth  DepthService
	logger *slog.Logger
}

// NewDepthHandler creates a DepthHandler.
func NewDepthHandler(depth DepthService, logger *slog.Logger) *DepthHandler {
	return &DepthHandler{depth: depth, logger: logger}
}

type depthResponse struct {
	Market domain.Market             `json:"market"`
	Book   domain.ProcessedOrderBook `json:"book"`
	Empty  bool                      `json:"empty"`
	At     time.Time                 `json:"at"`
}

func (h *DepthHandler) market(r *http.Request) (domain.Market, error) {
	network, err := networkParam(r)
	if err != nil {
		return domain.Market{}, err
	}
	return h.depth.ResolveMarket(network, pathParam(r, "base"), pathParam(r, "quote"))
}

// GetDepth returns the processed order book of a market. refresh=true skips
// the cache.
// GET /api/orderbook/{network}/{base}/{quote}?refresh=true
func (h *DepthHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	m, err := h.market(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "get depth", err)
		return
	}

	fetch := h.depth.Depth
	if queryBool(r, "refresh") {
		fetch = h.depth.Refresh
	}
	book, err := fetch(r.Context(), m)
	if err != nil {
		writeServiceError(w, r, h.logger, "get depth", err)
		return
	}

	writeJSON(w, http.StatusOK, depthResponse{
		Market: m,
		Book:   book,
		Empty:  book.Empty(),
		At:     time.Now().UTC(),
	})
}

// GetLatest returns the most recently recorded snapshot of a market.
// GET /api/orderbook/{network}/{base}/{quote}/latest
func (h *DepthHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	m, err := h.market(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "get latest snapshot", err)
		return
	}
	snap, err := h.depth.Latest(r.Context(), m)
	if err != nil {
		writeServiceError(w, r, h.logger, "get latest snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
