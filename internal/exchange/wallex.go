package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	wallex "github.com/wallexchange/wallex-go"
)

// tradesClient is the part of the Wallex SDK client used for pricing.
type tradesClient interface {
	MarketTrades(symbol string) ([]*wallex.MarketTrade, error)
}

// WallexExchange prices a market by its most recent trade on Wallex.
type WallexExchange struct {
	client tradesClient
	market string
}

func NewWallexExchange(apiKey, market string) *WallexExchange {
	return &WallexExchange{
		client: wallex.New(wallex.ClientOptions{APIKey: apiKey}),
		market: market,
	}
}

func (w *WallexExchange) Name() string {
	return "wallex"
}

// FetchPrice returns the price of the latest trade. The SDK call is not
// retried; a failed tick is simply skipped.
func (w *WallexExchange) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	select {
	case <-ctx.Done():
		return decimal.Zero, &FetchError{Source: w.Name(), Err: ctx.Err()}
	default:
	}

	trades, err := w.client.MarketTrades(w.market)
	if err != nil {
		return decimal.Zero, &FetchError{Source: w.Name(), Err: fmt.Errorf("fetching latest trades: %w", err)}
	}
	if len(trades) == 0 || trades[0] == nil {
		return decimal.Zero, &FetchError{Source: w.Name(), Err: fmt.Errorf("%w: no trades for %s", ErrPriceNotFound, w.market)}
	}

	price, err := decimal.NewFromString(string(trades[0].Price))
	if err != nil {
		return decimal.Zero, &FetchError{Source: w.Name(), Err: fmt.Errorf("parse trade price %q: %w", trades[0].Price, err)}
	}
	if !price.IsPositive() {
		return decimal.Zero, &FetchError{Source: w.Name(), Err: fmt.Errorf("%w: non-positive price %s", ErrPriceNotFound, price)}
	}
	return price, nil
}
