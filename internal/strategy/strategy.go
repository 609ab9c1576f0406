package strategy

import (
	"time"

	"github.com/amirphl/rsi-trader/internal/config"
	"github.com/amirphl/rsi-trader/internal/indicator"
	"github.com/amirphl/rsi-trader/internal/strategy/signal"
	"github.com/amirphl/rsi-trader/internal/strategy/state_machine"
	"github.com/shopspring/decimal"
)

// Strategy is the interface for single-asset tick strategies.
type Strategy interface {
	Name() string
	Symbol() string
	OnTick(now time.Time, price decimal.Decimal, rsi indicator.RSIValue) signal.Signal
	Snapshot(now time.Time) Snapshot
}

// Snapshot is a point-in-time copy of a strategy's position and balances.
type Snapshot struct {
	Symbol           string              `json:"symbol"`
	State            state_machine.State `json:"state"`
	Capital          decimal.Decimal     `json:"capital"`
	TotalProfit      decimal.Decimal     `json:"total_profit"`
	Quantity         decimal.Decimal     `json:"quantity"`
	EntryPrice       decimal.Decimal     `json:"entry_price"`
	TotalTransitions int                 `json:"total_transitions"`

	// LastTransition is nil until the first BUY.
	LastTransition *state_machine.StateTransition `json:"last_transition,omitempty"`
	// TimeInState is in seconds and stays 0 until the first transition.
	TimeInState float64 `json:"time_in_state_seconds"`
}

// New builds the configured strategy.
func New(cfg config.Config) Strategy {
	return NewRSITrader(cfg.Symbol, Params{
		BuyThreshold:    cfg.BuyThreshold,
		SellThreshold:   cfg.SellThreshold,
		TargetProfit:    decimal.NewFromFloat(cfg.TargetProfit),
		StartingCapital: decimal.NewFromFloat(cfg.StartingCapital),
	})
}
