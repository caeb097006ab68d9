// Package token holds the read-only list of exchange-listed tokens.
package token

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// DefaultDecimals is assumed for tokens listed without explicit decimals.
const DefaultDecimals = 18

// Registry resolves token ids, symbols and addresses. It is immutable after
// NewRegistry returns.
type Registry struct {
	byID      map[int]domain.TokenDetails
	bySymbol  map[string]domain.TokenDetails
	byAddress map[common.Address]domain.TokenDetails
	list      []domain.TokenDetails
}

// NewRegistry validates tokens and indexes them. Addresses are stored in
// their EIP-55 checksummed form.
func NewRegistry(tokens []domain.TokenDetails) (*Registry, error) {
	r := &Registry{
		byID:      make(map[int]domain.TokenDetails, len(tokens)),
		bySymbol:  make(map[string]domain.TokenDetails, len(tokens)),
		byAddress: make(map[common.Address]domain.TokenDetails, len(tokens)),
		list:      make([]domain.TokenDetails, 0, len(tokens)),
	}

	for _, t := range tokens {
		if t.ID < 0 {
			return nil, fmt.Errorf("token: id %d is negative", t.ID)
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("token: duplicate id %d", t.ID)
		}
		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("token: id %d: invalid address %q", t.ID, t.Address)
		}
		addr := common.HexToAddress(t.Address)
		if _, dup := r.byAddress[addr]; dup {
			return nil, fmt.Errorf("token: duplicate address %s", addr.Hex())
		}
		if t.Decimals < 0 {
			return nil, fmt.Errorf("token: id %d: negative decimals %d", t.ID, t.Decimals)
		}
		if t.Decimals == 0 {
			t.Decimals = DefaultDecimals
		}
		t.Address = addr.Hex()

		r.byID[t.ID] = t
		r.byAddress[addr] = t
		if t.Symbol != "" {
			key := strings.ToUpper(t.Symbol)
			// First listing wins on symbol clashes, ids stay authoritative.
			if _, taken := r.bySymbol[key]; !taken {
				r.bySymbol[key] = t
			}
		}
		r.list = append(r.list, t)
	}

	sort.Slice(r.list, func(i, j int) bool { return r.list[i].ID < r.list[j].ID })
	return r, nil
}

// ByID returns the token with the given exchange id.
func (r *Registry) ByID(id int) (domain.TokenDetails, error) {
	t, ok := r.byID[id]
	if !ok {
		return domain.TokenDetails{}, fmt.Errorf("token: id %d: %w", id, domain.ErrUnknownToken)
	}
	return t, nil
}

// BySymbol looks a token up by symbol, case-insensitively.
func (r *Registry) BySymbol(symbol string) (domain.TokenDetails, error) {
	t, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return domain.TokenDetails{}, fmt.Errorf("token: symbol %q: %w", symbol, domain.ErrUnknownToken)
	}
	return t, nil
}

// ByAddress looks a token up by contract address in any hex casing.
func (r *Registry) ByAddress(address string) (domain.TokenDetails, error) {
	if !common.IsHexAddress(address) {
		return domain.TokenDetails{}, fmt.Errorf("token: address %q: %w", address, domain.ErrUnknownToken)
	}
	t, ok := r.byAddress[common.HexToAddress(address)]
	if !ok {
		return domain.TokenDetails{}, fmt.Errorf("token: address %s: %w", address, domain.ErrUnknownToken)
	}
	return t, nil
}

// Resolve accepts an id, a symbol or an address.
func (r *Registry) Resolve(ref string) (domain.TokenDetails, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return r.ByID(id)
	}
	if common.IsHexAddress(ref) {
		return r.ByAddress(ref)
	}
	return r.BySymbol(ref)
}

// List returns all tokens ordered by id. The slice is a copy.
func (r *Registry) List() []domain.TokenDetails {
	out := make([]domain.TokenDetails, len(r.list))
	copy(out, r.list)
	return out
}
