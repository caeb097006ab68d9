package handler

import (
	"net/http"
	"strconv"

	"github.com/alanyoungcy/dexdepth/internal/price"
)

// PriceService is the price arithmetic used by order forms.
type PriceService interface {
	Invert(text string) price.InversionPair
	Normalize(text string, precision int) (string, bool)
}

// PriceHandler exposes price inversion and input normalisation.
type PriceHandler struct {
	prices PriceService
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices PriceService) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// Invert returns a price together with its reciprocal.
// GET /api/price/invert?price=1.25
func (h *PriceHandler) Invert(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prices.Invert(r.URL.Query().Get("price")))
}

type normalizeResponse struct {
	Value     string `json:"value"`
	Precision int    `json:"precision"`
	Valid     bool   `json:"valid"`
}

// Normalize tidies a numeric input the way a field does on blur.
// GET /api/price/normalize?value=1.2300&precision=2
func (h *PriceHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	precision := 18
	if v := q.Get("precision"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "precision must be a non-negative integer")
			return
		}
		precision = n
	}
	out, valid := h.prices.Normalize(q.Get("value"), precision)
	writeJSON(w, http.StatusOK, normalizeResponse{Value: out, Precision: precision, Valid: valid})
}
