package service

import (
	"fmt"
	"strconv"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// ResolvedMarket is a market together with its token details.
type ResolvedMarket struct {
	Market domain.Market
	Base   domain.TokenDetails
	Quote  domain.TokenDetails
}

// ResolveMarket validates a network and two token references (id, symbol or
// address) against the registry.
func ResolveMarket(tokens domain.TokenRegistry, network domain.NetworkID, baseRef, quoteRef string) (ResolvedMarket, error) {
	if !network.Valid() {
		return ResolvedMarket{}, fmt.Errorf("service: network %d: %w", int(network), domain.ErrInvalidMarket)
	}
	base, err := tokens.Resolve(baseRef)
	if err != nil {
		return ResolvedMarket{}, fmt.Errorf("service: base token: %w", err)
	}
	quote, err := tokens.Resolve(quoteRef)
	if err != nil {
		return ResolvedMarket{}, fmt.Errorf("service: quote token: %w", err)
	}
	if base.ID == quote.ID {
		return ResolvedMarket{}, fmt.Errorf("service: %s-%s: %w: base and quote are the same token",
			base.Label(), quote.Label(), domain.ErrInvalidMarket)
	}
	return ResolvedMarket{
		Market: domain.Market{Network: network, BaseTokenID: base.ID, QuoteTokenID: quote.ID},
		Base:   base,
		Quote:  quote,
	}, nil
}

// resolveByID is ResolveMarket for an already-numeric market.
func resolveByID(tokens domain.TokenRegistry, m domain.Market) (ResolvedMarket, error) {
	return ResolveMarket(tokens, m.Network, strconv.Itoa(m.BaseTokenID), strconv.Itoa(m.QuoteTokenID))
}
