package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

var parserPool fastjson.ParserPool

// DecodeRaw parses the price estimator's {"asks":[...],"bids":[...]} payload.
// Prices and volumes may be JSON numbers or numeric strings; they are read
// from their literal text so large base-unit volumes keep every digit.
// Entries that are not objects or lack a numeric price or volume are skipped.
// Only an unparseable document or a non-object root returns an error.
func DecodeRaw(data []byte) (domain.RawOrderBook, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return domain.RawOrderBook{}, fmt.Errorf("orderbook: decode: %w: %v", domain.ErrMalformedBook, err)
	}
	if v.Type() != fastjson.TypeObject {
		return domain.RawOrderBook{}, fmt.Errorf("orderbook: decode: %w: root is %s", domain.ErrMalformedBook, v.Type())
	}

	return domain.RawOrderBook{
		Asks: decodeEntries(v.GetArray("asks")),
		Bids: decodeEntries(v.GetArray("bids")),
	}, nil
}

func decodeEntries(items []*fastjson.Value) []domain.RawOrderBookEntry {
	out := make([]domain.RawOrderBookEntry, 0, len(items))
	for _, item := range items {
		if item.Type() != fastjson.TypeObject {
			continue
		}
		price, ok := decimalValue(item.Get("price"))
		if !ok {
			continue
		}
		volume, ok := decimalValue(item.Get("volume"))
		if !ok {
			continue
		}
		out = append(out, domain.RawOrderBookEntry{Price: price, Volume: volume})
	}
	return out
}

func decimalValue(v *fastjson.Value) (decimal.Decimal, bool) {
	if v == nil {
		return decimal.Zero, false
	}
	var text string
	switch v.Type() {
	case fastjson.TypeNumber:
		text = string(v.MarshalTo(nil))
	case fastjson.TypeString:
		text = string(v.GetStringBytes())
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
