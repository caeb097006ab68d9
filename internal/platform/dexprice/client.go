// Package dexprice is the REST client for the exchange's price-estimation
// service, which serves aggregated order books and buy-amount estimates.
package dexprice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/orderbook"
)

const (
	defaultTimeout = 30 * time.Second
	// Order books are aggregated across up to this many intermediate hops.
	orderBookHops = "2"
	// Digits kept when dividing buy and sell amounts.
	pricePrecision = 18
	maxErrorBody   = 256
)

var parserPool fastjson.ParserPool

// Client talks to one price-estimation deployment. Tokens are needed to scale
// amounts to and from base units.
type Client struct {
	baseURL    string
	tokens     domain.TokenRegistry
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g.
// "https://dex-price-estimator.gnosis.io". A non-positive timeout selects the
// default of 30s.
func NewClient(baseURL string, tokens domain.TokenRegistry, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetOrderBook returns the raw aggregated book of a market. Volumes are in
// base units.
func (c *Client) GetOrderBook(ctx context.Context, network domain.NetworkID, baseTokenID, quoteTokenID int) (domain.RawOrderBook, error) {
	params := url.Values{}
	params.Set("atoms", "true")
	params.Set("hops", orderBookHops)

	path := marketPath(network, baseTokenID, quoteTokenID) + "?" + params.Encode()

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.RawOrderBook{}, fmt.Errorf("dexprice: get order book %d-%d: %w", baseTokenID, quoteTokenID, err)
	}

	raw, err := orderbook.DecodeRaw(body)
	if err != nil {
		return domain.RawOrderBook{}, fmt.Errorf("dexprice: get order book %d-%d: %w", baseTokenID, quoteTokenID, err)
	}
	return raw, nil
}

// EstimatePrice asks how much of baseTokenID is bought by selling amount of
// quoteTokenID and returns the resulting unit price (base per quote).
func (c *Client) EstimatePrice(ctx context.Context, network domain.NetworkID, baseTokenID, quoteTokenID int, amount decimal.Decimal) (decimal.Decimal, error) {
	base, err := c.tokens.ByID(baseTokenID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dexprice: estimate price: %w", err)
	}
	quote, err := c.tokens.ByID(quoteTokenID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dexprice: estimate price: %w", err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("dexprice: estimate price: amount %s must be positive", amount)
	}

	atoms := amount.Shift(int32(quote.Decimals)).Truncate(0)
	path := fmt.Sprintf("%s/estimated-buy-amount/%s?atoms=true",
		marketPath(network, baseTokenID, quoteTokenID), atoms.String())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dexprice: estimate %s-%s: %w", base.Label(), quote.Label(), err)
	}

	buy, sell, err := decodeEstimate(body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dexprice: estimate %s-%s: %w", base.Label(), quote.Label(), err)
	}
	if sell.IsZero() {
		return decimal.Zero, fmt.Errorf("dexprice: estimate %s-%s: %w: zero sell amount", base.Label(), quote.Label(), domain.ErrUpstream)
	}

	bought := buy.Shift(-int32(base.Decimals))
	sold := sell.Shift(-int32(quote.Decimals))
	return bought.DivRound(sold, pricePrecision), nil
}

func marketPath(network domain.NetworkID, baseTokenID, quoteTokenID int) string {
	return fmt.Sprintf("/%s/api/v1/markets/%d-%d", url.PathEscape(network.String()), baseTokenID, quoteTokenID)
}

// decodeEstimate reads buyAmountInBase and sellAmountInQuote, which the
// service sends as strings to keep full precision.
func decodeEstimate(data []byte) (buy, sell decimal.Decimal, err error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if buy, err = amountField(v, "buyAmountInBase"); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if sell, err = amountField(v, "sellAmountInQuote"); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return buy, sell, nil
}

func amountField(v *fastjson.Value, key string) (decimal.Decimal, error) {
	f := v.Get(key)
	if f == nil {
		return decimal.Zero, fmt.Errorf("%w: missing %s", domain.ErrUpstream, key)
	}
	var text string
	switch f.Type() {
	case fastjson.TypeString:
		text = string(f.GetStringBytes())
	case fastjson.TypeNumber:
		text = string(f.MarshalTo(nil))
	default:
		return decimal.Zero, fmt.Errorf("%w: %s has type %s", domain.ErrUpstream, key, f.Type())
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrUpstream, key, err)
	}
	return d, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	excerpt := string(body)
	if len(excerpt) > maxErrorBody {
		excerpt = excerpt[:maxErrorBody]
	}
	if statusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w: %s", domain.ErrUpstream, domain.ErrNotFound, excerpt)
	}
	return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstream, statusCode, excerpt)
}
