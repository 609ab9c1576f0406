// Package exchange
package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrRateLimited is returned when the upstream answers 429 Too Many Requests.
	ErrRateLimited = errors.New("rate limited")
	// ErrMaxRetriesExceeded is returned after the last rate-limited attempt.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	// ErrPriceNotFound is returned when the response has no usable price.
	ErrPriceNotFound = errors.New("price not found")
)

// PriceSource is the interface for all spot price providers.
type PriceSource interface {
	Name() string
	FetchPrice(ctx context.Context) (decimal.Decimal, error)
}

// FetchError describes a failed price fetch. Status is the HTTP status code
// when the upstream answered, zero otherwise.
type FetchError struct {
	Source string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: fetch price: status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: fetch price: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
