package service

import (
	"github.com/alanyoungcy/dexdepth/internal/numinput"
	"github.com/alanyoungcy/dexdepth/internal/price"
)

// PriceService exposes the price arithmetic used by order forms: the paired
// price / inverse price inputs and blur-time normalisation.
type PriceService struct{}

// NewPriceService creates a PriceService.
func NewPriceService() *PriceService {
	return &PriceService{}
}

// Invert returns the text together with its reciprocal. Unparseable input
// yields an empty inverse.
func (s *PriceService) Invert(text string) price.InversionPair {
	return price.Pair(text)
}

// Normalize applies the same clean-up a numeric input performs when it loses
// focus: excess fraction digits are cut to precision and redundant zeros are
// removed. The second result reports whether the normalised text is
// acceptable numeric input.
func (s *PriceService) Normalize(text string, precision int) (string, bool) {
	field := numinput.NewField(text)
	n := numinput.New(field, precision)
	n.OnBlur()
	out := field.Value()
	return out, numinput.Valid(out, n.Precision())
}
