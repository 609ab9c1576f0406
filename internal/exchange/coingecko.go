package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/amirphl/rsi-trader/internal/utils"
	"github.com/shopspring/decimal"
)

const (
	DefaultCoinGeckoURL   = "https://api.coingecko.com/api/v3/simple/price"
	DefaultMaxRetries     = 5
	DefaultInitialBackoff = time.Second
)

// CoinGeckoOptions configures a CoinGecko price source. Zero values fall back
// to the package defaults.
type CoinGeckoOptions struct {
	BaseURL        string
	Symbol         string // coin id, e.g. "bitcoin"
	Currency       string // quote currency, e.g. "gbp"
	MaxRetries     int
	InitialBackoff time.Duration
	Timeout        time.Duration
	HTTPClient     *http.Client
	Sleep          SleepFunc
	OnRetry        RetryObserver
}

// CoinGeckoExchange fetches spot prices from the CoinGecko simple price endpoint.
// Rate-limited responses are retried with exponential backoff; every other
// failure is returned immediately.
type CoinGeckoExchange struct {
	baseURL        string
	symbol         string
	currency       string
	maxRetries     int
	initialBackoff time.Duration
	client         *http.Client
	sleep          SleepFunc
	onRetry        RetryObserver
}

// simplePriceResponse is {"<symbol>": {"<currency>": <price>}}.
type simplePriceResponse map[string]map[string]decimal.Decimal

func NewCoinGeckoExchange(opts CoinGeckoOptions) *CoinGeckoExchange {
	c := &CoinGeckoExchange{
		baseURL:        opts.BaseURL,
		symbol:         opts.Symbol,
		currency:       opts.Currency,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		client:         opts.HTTPClient,
		sleep:          opts.Sleep,
		onRetry:        opts.OnRetry,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultCoinGeckoURL
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = DefaultInitialBackoff
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if c.sleep == nil {
		c.sleep = utils.Sleep
	}
	return c
}

func (c *CoinGeckoExchange) Name() string {
	return "coingecko"
}

// URL returns the request URL for the configured symbol and currency.
func (c *CoinGeckoExchange) URL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("ids", c.symbol)
	q.Set("vs_currencies", c.currency)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPrice returns the current price of the symbol in the quote currency.
// Errors are always *FetchError.
func (c *CoinGeckoExchange) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	endpoint, err := c.URL()
	if err != nil {
		return decimal.Zero, &FetchError{Source: c.Name(), Err: err}
	}

	var body simplePriceResponse
	err = retryRateLimited(ctx, c.Name(), c.maxRetries, c.initialBackoff, c.sleep, c.onRetry, func() error {
		return c.get(ctx, endpoint, &body)
	})
	if err != nil {
		return decimal.Zero, err
	}

	price, ok := body[c.symbol][c.currency]
	if !ok {
		return decimal.Zero, &FetchError{Source: c.Name(), Err: fmt.Errorf("%w for %s/%s", ErrPriceNotFound, c.symbol, c.currency)}
	}
	if !price.IsPositive() {
		return decimal.Zero, &FetchError{Source: c.Name(), Err: fmt.Errorf("%w: non-positive price %s", ErrPriceNotFound, price)}
	}
	return price, nil
}

func (c *CoinGeckoExchange) get(ctx context.Context, endpoint string, out *simplePriceResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Source: c.Name(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Source: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{Source: c.Name(), Status: resp.StatusCode, Err: ErrRateLimited}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FetchError{Source: c.Name(), Status: resp.StatusCode, Err: fmt.Errorf("unexpected response: %q", msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Source: c.Name(), Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
