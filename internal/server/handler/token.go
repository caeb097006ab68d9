package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// TokenHandler serves the token reference data.
type TokenHandler struct {
	tokens domain.TokenRegistry
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens domain.TokenRegistry, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

type listTokensResponse struct {
	Tokens []domain.TokenDetails `json:"tokens"`
	Total  int                   `json:"total"`
}

// ListTokens returns every known token ordered by id.
// GET /api/tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens := h.tokens.List()
	writeJSON(w, http.StatusOK, listTokensResponse{Tokens: tokens, Total: len(tokens)})
}

// GetToken looks a token up by id, symbol or address.
// GET /api/tokens/{ref}
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	t, err := h.tokens.Resolve(pathParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get token", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
