// Package notifier
package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/rsi-trader/internal/utils"
)

// Notifier interface for sending notifications (e.g., Telegram, Redis).
type Notifier interface {
	Send(ctx context.Context, msg string) error
	SendWithRetry(ctx context.Context, msg string) error
}

// sendWithRetry calls send up to attempts times, waiting delay between tries.
func sendWithRetry(ctx context.Context, name string, attempts int, delay time.Duration, send func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = send(ctx); err == nil {
			return nil
		}
		utils.GetLogger().Printf("Notifier | %s attempt %d/%d failed: %v", name, i, attempts, err)
		if i == attempts {
			break
		}
		if serr := utils.Sleep(ctx, delay); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}

// Multi fans a message out to several notifiers. Every notifier is tried;
// the errors are joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) SendWithRetry(ctx context.Context, msg string) error {
	var errs []error
	for _, n := range m {
		if err := n.SendWithRetry(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
