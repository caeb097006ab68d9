package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NetworkID identifies the chain a token list or market belongs to.
type NetworkID int

const (
	NetworkMainnet NetworkID = 1
	NetworkRinkeby NetworkID = 4
	NetworkXDAI    NetworkID = 100
)

// String returns the short network name used in price-estimator URLs.
func (n NetworkID) String() string {
	switch n {
	case NetworkMainnet:
		return "mainnet"
	case NetworkRinkeby:
		return "rinkeby"
	case NetworkXDAI:
		return "xdai"
	default:
		return fmt.Sprintf("network-%d", int(n))
	}
}

// Valid reports whether n is one of the supported networks.
func (n NetworkID) Valid() bool {
	switch n {
	case NetworkMainnet, NetworkRinkeby, NetworkXDAI:
		return true
	default:
		return false
	}
}

// ParseNetwork accepts a numeric network id or its short name.
func ParseNetwork(s string) (NetworkID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if id, err := strconv.Atoi(s); err == nil {
		if n := NetworkID(id); n.Valid() {
			return n, nil
		}
		return 0, fmt.Errorf("network %q: %w", s, ErrInvalidMarket)
	}
	for _, n := range []NetworkID{NetworkMainnet, NetworkRinkeby, NetworkXDAI} {
		if n.String() == s {
			return n, nil
		}
	}
	return 0, fmt.Errorf("network %q: %w", s, ErrInvalidMarket)
}

// TokenDetails is immutable reference data for an exchange-listed token.
type TokenDetails struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

// Label returns the symbol, falling back to the address when no symbol is set.
func (t TokenDetails) Label() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address
}

// Market identifies a base/quote pair on a network.
type Market struct {
	Network      NetworkID `json:"network"`
	BaseTokenID  int       `json:"baseTokenId"`
	QuoteTokenID int       `json:"quoteTokenId"`
}

// Key is the stable string form used in cache keys and pub/sub channels.
func (m Market) Key() string {
	return fmt.Sprintf("%d:%d-%d", int(m.Network), m.BaseTokenID, m.QuoteTokenID)
}

// TokenRegistry resolves token ids and symbols to TokenDetails.
type TokenRegistry interface {
	ByID(id int) (TokenDetails, error)
	BySymbol(symbol string) (TokenDetails, error)
	// Resolve accepts an id, a symbol or an address.
	Resolve(ref string) (TokenDetails, error)
	List() []TokenDetails
}
