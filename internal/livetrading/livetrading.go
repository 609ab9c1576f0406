// Package livetrading
package livetrading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/amirphl/rsi-trader/internal/exchange"
	"github.com/amirphl/rsi-trader/internal/indicator"
	"github.com/amirphl/rsi-trader/internal/journal"
	"github.com/amirphl/rsi-trader/internal/metrics"
	"github.com/amirphl/rsi-trader/internal/notifier"
	"github.com/amirphl/rsi-trader/internal/strategy"
	"github.com/amirphl/rsi-trader/internal/strategy/position"
	"github.com/amirphl/rsi-trader/internal/strategy/signal"
	"github.com/amirphl/rsi-trader/internal/utils"
	"github.com/shopspring/decimal"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Broadcaster receives every evaluated signal.
type Broadcaster interface {
	Broadcast(v any)
}

// Options wires a Runner. Source and Strategy are required; everything else
// is optional.
type Options struct {
	Interval    time.Duration
	WindowSize  int
	Currency    string
	Source      exchange.PriceSource
	Strategy    strategy.Strategy
	Indicator   indicator.Indicator // defaults to RSI over WindowSize
	Journal     journal.Journaler
	Notifier    notifier.Notifier
	Broadcaster Broadcaster
	Metrics     *metrics.Metrics
	Logger      *log.Logger
	Wait        WaitFunc
	Now         func() time.Time
}

// Status is what the runner publishes after every tick for readers on other
// goroutines.
type Status struct {
	strategy.Snapshot
	LastPrice    decimal.Decimal `json:"last_price"`
	LastRSI      float64         `json:"last_rsi"`
	RSIValid     bool            `json:"rsi_valid"`
	WindowLength int             `json:"window_length"`
	WindowSize   int             `json:"window_size"`
	LastTick     time.Time       `json:"last_tick"`
	Ticks        uint64          `json:"ticks"`
	TickErrors   uint64          `json:"tick_errors"`
}

// Runner owns the price window and the strategy and drives them from a
// single goroutine.
type Runner struct {
	interval  time.Duration
	currency  string
	source    exchange.PriceSource
	strat     strategy.Strategy
	ind       indicator.Indicator
	window    *indicator.PriceWindow
	journal   journal.Journaler
	notifier  notifier.Notifier
	broadcast Broadcaster
	metrics   *metrics.Metrics
	logger    *log.Logger
	wait      WaitFunc
	now       func() time.Time

	ticks      uint64
	tickErrors uint64
	lastPrice  decimal.Decimal
	lastRSI    indicator.RSIValue
	lastTick   time.Time

	status atomic.Pointer[Status]
}

// NewRunner validates opts and builds a runner with an empty window.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Source == nil {
		return nil, errors.New("livetrading: price source is required")
	}
	if opts.Strategy == nil {
		return nil, errors.New("livetrading: strategy is required")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("livetrading: interval must be positive, got %v", opts.Interval)
	}
	if opts.WindowSize < 2 {
		return nil, fmt.Errorf("livetrading: window size must be at least 2, got %d", opts.WindowSize)
	}

	r := &Runner{
		interval:  opts.Interval,
		currency:  strings.ToUpper(opts.Currency),
		source:    opts.Source,
		strat:     opts.Strategy,
		ind:       opts.Indicator,
		window:    indicator.NewPriceWindow(opts.WindowSize),
		journal:   opts.Journal,
		notifier:  opts.Notifier,
		broadcast: opts.Broadcaster,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		wait:      opts.Wait,
		now:       opts.Now,
		lastPrice: decimal.Zero,
	}
	if r.ind == nil {
		r.ind = indicator.NewRSI(opts.WindowSize)
	}
	if r.logger == nil {
		r.logger = utils.GetLogger()
	}
	if r.wait == nil {
		r.wait = utils.Sleep
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.publish()
	return r, nil
}

// Status returns the most recently published status. Safe for concurrent use.
func (r *Runner) Status() Status {
	return *r.status.Load()
}

// Run waits one interval, runs a tick, and repeats until ctx is done. The
// next wait starts only after the previous tick has finished, so ticks never
// overlap. A failing tick is logged and the loop goes on.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Runner | [%s] Starting %s loop every %v on %s", r.strat.Symbol(), r.strat.Name(), r.interval, r.source.Name())
	for {
		if err := r.wait(ctx, r.interval); err != nil {
			r.logger.Printf("Runner | [%s] Stopped: %v", r.strat.Symbol(), err)
			return nil
		}
		if ctx.Err() != nil {
			r.logger.Printf("Runner | [%s] Stopped: %v", r.strat.Symbol(), ctx.Err())
			return nil
		}
		r.safeTick(ctx)
	}
}

// safeTick runs one tick and absorbs its error or panic.
func (r *Runner) safeTick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.tickFailed(ctx, fmt.Errorf("panic: %v", rec))
		}
	}()
	if _, err := r.Tick(ctx); err != nil {
		r.tickFailed(ctx, err)
	}
}

func (r *Runner) tickFailed(ctx context.Context, err error) {
	r.tickErrors++
	r.publish()
	if r.metrics != nil {
		r.metrics.TickErrors.Inc()
	}
	r.logger.Printf("Runner | [%s] Error: %v", r.strat.Symbol(), err)
	r.record(ctx, journal.Event{
		Time:        r.now(),
		Type:        journal.TypeError,
		Description: "tick_failed",
		Data: map[string]any{
			"symbol": r.strat.Symbol(),
			"source": r.source.Name(),
			"error":  err.Error(),
		},
	})
}

// Tick fetches one price and evaluates it. When the fetch fails or the
// strategy panics, the window is left untouched.
func (r *Runner) Tick(ctx context.Context) (signal.Signal, error) {
	r.ticks++
	if r.metrics != nil {
		r.metrics.TicksTotal.Inc()
	}

	start := time.Now()
	price, err := r.source.FetchPrice(ctx)
	if r.metrics != nil {
		r.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.FetchErrors.WithLabelValues(r.source.Name()).Inc()
		}
		r.publish()
		return signal.Signal{}, fmt.Errorf("fetch price from %s: %w", r.source.Name(), err)
	}

	// The window only advances once the strategy has accepted the tick.
	now := r.now()
	p := price.InexactFloat64()
	rsi := r.ind.Calculate(r.window.With(p))
	sig := r.strat.OnTick(now, price, rsi)

	r.window.Push(p)
	r.lastPrice = price
	r.lastRSI = rsi
	r.lastTick = now

	r.report(ctx, sig)
	r.publish()
	return sig, nil
}

// report logs the outcome and hands trades to the journal and notifier.
// Failures here never fail the tick.
func (r *Runner) report(ctx context.Context, sig signal.Signal) {
	symbol := sig.Symbol
	r.logger.Printf("Runner | [%s] Price: %s %s", symbol, sig.Price.StringFixed(2), r.currency)

	if !sig.RSIValid {
		r.logger.Printf("Runner | [%s] Waiting for %d data points to calculate RSI (%d/%d)",
			symbol, r.window.Cap(), r.window.Len(), r.window.Cap())
		r.updateMetrics(sig)
		r.emit(sig)
		return
	}

	r.logger.Printf("Runner | [%s] RSI: %.2f", symbol, sig.RSI)

	switch sig.Action {
	case position.Buy:
		r.logger.Printf("Runner | [%s] BUY at %s %s (RSI: %.2f)", symbol, sig.Price.StringFixed(2), r.currency, sig.RSI)
		r.logger.Printf("Runner | [%s] Bought %s ≈ %s %s", symbol, sig.Quantity.StringFixed(8), sig.MarketValue.StringFixed(2), r.currency)
	case position.Sell:
		r.logger.Printf("Runner | [%s] SELL at %s %s (%s, RSI: %.2f)", symbol, sig.Price.StringFixed(2), r.currency, sig.Reason, sig.RSI)
		r.logger.Printf("Runner | [%s] Profit: %s %s | New Capital: %s %s", symbol,
			sig.Profit.StringFixed(2), r.currency, sig.Capital.StringFixed(2), r.currency)
	case position.Hold:
		r.logger.Printf("Runner | [%s] Holding %s ≈ %s %s, Buy Price: %s, Potential Profit: %s. Target Sell Price: %s",
			symbol, sig.Quantity.StringFixed(8), sig.MarketValue.StringFixed(2), r.currency,
			sig.EntryPrice.StringFixed(2), sig.Profit.StringFixed(2), sig.TargetSellPrice.StringFixed(2))
	default:
		r.logger.Printf("Runner | [%s] No action: %s", symbol, sig.Reason)
	}
	r.logger.Printf("Runner | [%s] Total Profit: %s %s", symbol, sig.TotalProfit.StringFixed(2), r.currency)

	if sig.IsTrade() {
		if r.metrics != nil {
			r.metrics.TradesTotal.WithLabelValues(sig.Action.String(), sig.Reason).Inc()
		}
		r.record(ctx, tradeEvent(sig))
		r.notify(ctx, r.tradeMessage(sig))
	}
	r.updateMetrics(sig)
	r.emit(sig)
}

func (r *Runner) record(ctx context.Context, event journal.Event) {
	if r.journal == nil {
		return
	}
	if err := r.journal.LogEvent(ctx, event); err != nil {
		if r.metrics != nil {
			r.metrics.JournalErrors.Inc()
		}
		r.logger.Printf("Runner | Failed to journal %s event: %v", event.Type, err)
	}
}

func (r *Runner) notify(ctx context.Context, msg string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.SendWithRetry(ctx, msg); err != nil {
		if r.metrics != nil {
			r.metrics.NotifyErrors.Inc()
		}
		r.logger.Printf("Runner | Failed to send notification: %v", err)
	}
}

func (r *Runner) emit(sig signal.Signal) {
	if r.broadcast != nil {
		r.broadcast.Broadcast(sig)
	}
}

func (r *Runner) updateMetrics(sig signal.Signal) {
	if r.metrics == nil {
		return
	}
	r.metrics.LastPrice.Set(sig.Price.InexactFloat64())
	if sig.RSIValid {
		r.metrics.LastRSI.Set(sig.RSI)
	}
	r.metrics.WindowLength.Set(float64(r.window.Len()))

	snap := r.strat.Snapshot(r.now())
	if snap.State == strategy.LongState {
		r.metrics.PositionOpen.Set(1)
	} else {
		r.metrics.PositionOpen.Set(0)
	}
	r.metrics.Capital.Set(snap.Capital.InexactFloat64())
	r.metrics.TotalProfit.Set(snap.TotalProfit.InexactFloat64())
}

func (r *Runner) tradeMessage(sig signal.Signal) string {
	switch sig.Action {
	case position.Buy:
		return fmt.Sprintf("BUY %s %s at %s %s (RSI %.2f), target %s",
			sig.Quantity.StringFixed(8), sig.Symbol, sig.Price.StringFixed(2), r.currency,
			sig.RSI, sig.TargetSellPrice.StringFixed(2))
	default:
		return fmt.Sprintf("SELL %s %s at %s %s (%s, RSI %.2f): profit %s, capital %s, total profit %s",
			sig.Quantity.StringFixed(8), sig.Symbol, sig.Price.StringFixed(2), r.currency,
			sig.Reason, sig.RSI, sig.Profit.StringFixed(2), sig.Capital.StringFixed(2),
			sig.TotalProfit.StringFixed(2))
	}
}

func tradeEvent(sig signal.Signal) journal.Event {
	return journal.Event{
		Time:        sig.Time,
		Type:        journal.TypeTrade,
		Description: strings.ToLower(sig.Action.String()),
		Data: map[string]any{
			"symbol":        sig.Symbol,
			"strategy_name": sig.StrategyName,
			"reason":        sig.Reason,
			"price":         sig.Price.String(),
			"rsi":           sig.RSI,
			"quantity":      sig.Quantity.String(),
			"entry_price":   sig.EntryPrice.String(),
			"profit":        sig.Profit.String(),
			"capital":       sig.Capital.String(),
			"total_profit":  sig.TotalProfit.String(),
		},
	}
}

func (r *Runner) publish() {
	r.status.Store(&Status{
		Snapshot:     r.strat.Snapshot(r.now()),
		LastPrice:    r.lastPrice,
		LastRSI:      r.lastRSI.Value,
		RSIValid:     r.lastRSI.Valid,
		WindowLength: r.window.Len(),
		WindowSize:   r.window.Cap(),
		LastTick:     r.lastTick,
		Ticks:        r.ticks,
		TickErrors:   r.tickErrors,
	})
}
