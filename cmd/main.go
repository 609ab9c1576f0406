package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/amirphl/rsi-trader/internal/config"
	"github.com/amirphl/rsi-trader/internal/exchange"
	"github.com/amirphl/rsi-trader/internal/journal"
	"github.com/amirphl/rsi-trader/internal/livetrading"
	"github.com/amirphl/rsi-trader/internal/metrics"
	"github.com/amirphl/rsi-trader/internal/notifier"
	"github.com/amirphl/rsi-trader/internal/server"
	"github.com/amirphl/rsi-trader/internal/strategy"
	"github.com/amirphl/rsi-trader/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.MustLoadConfig()
	utils.SetLogFile(cfg.LogFile)
	logger := utils.GetLogger()
	logger.Println(cfg.StatusLine())

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	m := metrics.New()

	j := openJournal(ctx, cfg)
	defer j.Close()

	notif, closeNotifiers := newNotifier(cfg)
	defer closeNotifiers()

	hub := server.NewHub(func(n int) { m.StreamSubscribers.Set(float64(n)) })

	runner, err := livetrading.NewRunner(livetrading.Options{
		Interval:    cfg.Interval,
		WindowSize:  cfg.WindowSize,
		Currency:    cfg.QuoteCurrency(),
		Source:      newPriceSource(cfg, m),
		Strategy:    strategy.New(cfg),
		Journal:     j,
		Notifier:    notif,
		Broadcaster: hub,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("Failed to create runner: %v", err)
	}

	srv := server.New(server.Options{
		Port:       cfg.Port,
		StatusLine: cfg.StatusLine(),
		State:      runner,
		Journal:    j,
		Metrics:    m.Handler(),
		Hub:        hub,
		Logger:     logger,
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			logger.Printf("Server error: %v", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		server.NewKeepalive(cfg.KeepaliveURL, cfg.KeepaliveInterval).Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := runner.Run(ctx); err != nil {
			logger.Printf("Runner error: %v", err)
		}
	}()

	wg.Wait()
	logger.Println("Shutdown complete")
}

func newPriceSource(cfg config.Config, m *metrics.Metrics) exchange.PriceSource {
	switch cfg.PriceSource {
	case config.SourceWallex:
		return exchange.NewWallexExchange(cfg.WallexAPIKey, cfg.WallexMarket)
	default:
		return exchange.NewCoinGeckoExchange(exchange.CoinGeckoOptions{
			BaseURL:        cfg.PriceAPIURL,
			Symbol:         cfg.Symbol,
			Currency:       cfg.Currency,
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			Timeout:        cfg.HTTPTimeout,
			OnRetry: func(attempt int, delay time.Duration) {
				m.RateLimitRetries.Inc()
			},
		})
	}
}

func openJournal(ctx context.Context, cfg config.Config) journal.Journaler {
	if cfg.JournalDriver == config.JournalMemory {
		return journal.NewMemory(0)
	}
	j, err := journal.OpenSQL(ctx, cfg.JournalDriver, cfg.JournalDSN)
	if err != nil {
		log.Fatalf("Failed to open %s journal: %v", cfg.JournalDriver, err)
	}
	utils.GetLogger().Printf("Journal | Connected to %s", cfg.JournalDriver)
	return j
}

// newNotifier returns the configured notifiers fanned out behind one
// Notifier, or nil when none is configured.
func newNotifier(cfg config.Config) (notifier.Notifier, func()) {
	var multi notifier.Multi
	closers := []func() error{}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		multi = append(multi, notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.NotificationRetries, cfg.NotificationDelay))
	}
	if cfg.RedisAddr != "" {
		r := notifier.NewRedisNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisChannel, cfg.NotificationRetries, cfg.NotificationDelay)
		multi = append(multi, r)
		closers = append(closers, r.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				utils.GetLogger().Printf("Notifier | Close failed: %v", err)
			}
		}
	}
	if len(multi) == 0 {
		return nil, closeAll
	}
	return multi, closeAll
}
