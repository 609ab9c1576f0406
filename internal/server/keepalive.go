package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/amirphl/rsi-trader/internal/utils"
)

// Keepalive pings the bot's own status URL so hosts that idle inactive
// services keep it running.
type Keepalive struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
	Logger   *log.Logger
}

func NewKeepalive(url string, interval time.Duration) *Keepalive {
	return &Keepalive{
		URL:      url,
		Interval: interval,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Logger:   utils.GetLogger(),
	}
}

// Ping performs one self-ping.
func (k *Keepalive) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.URL, nil)
	if err != nil {
		return err
	}
	resp, err := k.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Run pings every Interval until ctx is done. A non-positive Interval
// disables pinging.
func (k *Keepalive) Run(ctx context.Context) {
	if k.Interval <= 0 {
		k.Logger.Printf("Keepalive | Disabled: interval %v is not positive", k.Interval)
		return
	}
	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := k.Ping(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				k.Logger.Printf("Keepalive | Self-ping failed: %v", err)
				continue
			}
			k.Logger.Println("Keepalive | Self-ping OK")
		}
	}
}
