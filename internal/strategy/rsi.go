// Package strategy
package strategy

import (
	"time"

	"github.com/amirphl/rsi-trader/internal/indicator"
	"github.com/amirphl/rsi-trader/internal/strategy/position"
	"github.com/amirphl/rsi-trader/internal/strategy/signal"
	"github.com/amirphl/rsi-trader/internal/strategy/state_machine"
	"github.com/shopspring/decimal"
)

const (
	// FlatState - No position is held, waiting for RSI to drop below the buy threshold
	FlatState state_machine.State = "FLAT"

	// LongState - Holding the asset, waiting for the profit target or an overbought RSI
	LongState state_machine.State = "LONG"
)

// Params holds the trading thresholds of an RSITrader.
type Params struct {
	BuyThreshold    float64
	SellThreshold   float64
	TargetProfit    decimal.Decimal // currency gained per trade before exiting
	StartingCapital decimal.Decimal
}

// Portfolio is the simulated account. QuantityHeld is positive exactly when
// the trader is LONG; EntryPrice is meaningful only then.
type Portfolio struct {
	Capital             decimal.Decimal
	TotalRealizedProfit decimal.Decimal
	QuantityHeld        decimal.Decimal
	EntryPrice          decimal.Decimal
}

// RSITrader buys the whole capital when RSI is oversold and sells when either
// the profit target is reached or RSI turns overbought. Trades are simulated:
// capital is not spent on entry and only moves by the realized profit on exit.
type RSITrader struct {
	symbol    string
	params    Params
	portfolio Portfolio
	machine   *state_machine.StateMachine
}

// NewRSITrader creates a FLAT trader holding the starting capital.
func NewRSITrader(symbol string, params Params) *RSITrader {
	return &RSITrader{
		symbol: symbol,
		params: params,
		portfolio: Portfolio{
			Capital:             params.StartingCapital,
			TotalRealizedProfit: decimal.Zero,
			QuantityHeld:        decimal.Zero,
			EntryPrice:          decimal.Zero,
		},
		machine: state_machine.NewStateMachine(symbol, FlatState, 1000),
	}
}

// Name returns the name of the strategy
func (t *RSITrader) Name() string { return "RSI" }

// Symbol returns the symbol this strategy is configured for
func (t *RSITrader) Symbol() string { return t.symbol }

// State returns the current position state
func (t *RSITrader) State() state_machine.State { return t.machine.GetCurrentState() }

// Portfolio returns a copy of the account
func (t *RSITrader) Portfolio() Portfolio { return t.portfolio }

// History returns the recorded FLAT/LONG transitions
func (t *RSITrader) History() []state_machine.StateTransition {
	return t.machine.GetStateHistory()
}

// TargetSellPrice is the price at which the open position earns TargetProfit.
// It is zero while FLAT.
func (t *RSITrader) TargetSellPrice() decimal.Decimal {
	if !t.machine.IsInState(LongState) || !t.portfolio.QuantityHeld.IsPositive() {
		return decimal.Zero
	}
	return t.portfolio.EntryPrice.Add(t.params.TargetProfit.Div(t.portfolio.QuantityHeld))
}

// OnTick evaluates one price observation and returns what happened.
func (t *RSITrader) OnTick(now time.Time, price decimal.Decimal, rsi indicator.RSIValue) signal.Signal {
	sig := t.newSignal(now, price, rsi)

	if !rsi.Valid {
		sig.Reason = "warming up"
		return sig
	}
	if !price.IsPositive() {
		sig.Reason = "invalid price"
		return sig
	}

	switch t.machine.GetCurrentState() {
	case FlatState:
		return t.onFlat(sig, price, rsi)
	case LongState:
		return t.onLong(sig, price, rsi)
	}
	return sig
}

func (t *RSITrader) onFlat(sig signal.Signal, price decimal.Decimal, rsi indicator.RSIValue) signal.Signal {
	if rsi.Value >= t.params.BuyThreshold {
		sig.Reason = "rsi neutral"
		return sig
	}
	if !t.portfolio.Capital.IsPositive() {
		sig.Reason = "no capital"
		return sig
	}

	t.portfolio.EntryPrice = price
	t.portfolio.QuantityHeld = t.portfolio.Capital.Div(price)
	t.machine.TransitionTo(LongState, "rsi below buy threshold", position.Buy, "rsi oversold", sig.Time)

	sig.Action = position.Buy
	sig.Reason = "rsi oversold"
	sig.Quantity = t.portfolio.QuantityHeld
	sig.EntryPrice = price
	sig.MarketValue = t.portfolio.QuantityHeld.Mul(price)
	sig.TargetSellPrice = t.TargetSellPrice()
	return sig
}

func (t *RSITrader) onLong(sig signal.Signal, price decimal.Decimal, rsi indicator.RSIValue) signal.Signal {
	target := t.TargetSellPrice()

	if price.GreaterThanOrEqual(target) {
		return t.close(sig, price, target, signal.ReasonTarget, "price reached target")
	}
	if rsi.Value > t.params.SellThreshold {
		return t.close(sig, price, target, signal.ReasonRSI, "rsi above sell threshold")
	}

	qty := t.portfolio.QuantityHeld
	sig.Action = position.Hold
	sig.Reason = "holding"
	sig.Quantity = qty
	sig.EntryPrice = t.portfolio.EntryPrice
	sig.TargetSellPrice = target
	sig.MarketValue = qty.Mul(price)
	sig.Profit = qty.Mul(price.Sub(t.portfolio.EntryPrice))
	return sig
}

// close realizes the open position at price and returns to FLAT.
func (t *RSITrader) close(sig signal.Signal, price, target decimal.Decimal, reason, condition string) signal.Signal {
	qty := t.portfolio.QuantityHeld
	entry := t.portfolio.EntryPrice
	profit := qty.Mul(price.Sub(entry))

	t.portfolio.Capital = t.portfolio.Capital.Add(profit)
	t.portfolio.TotalRealizedProfit = t.portfolio.TotalRealizedProfit.Add(profit)
	t.portfolio.QuantityHeld = decimal.Zero
	t.portfolio.EntryPrice = decimal.Zero
	t.machine.TransitionTo(FlatState, condition, position.Sell, reason, sig.Time)

	sig.Action = position.Sell
	sig.Reason = reason
	sig.Quantity = qty
	sig.EntryPrice = entry
	sig.TargetSellPrice = target
	sig.MarketValue = qty.Mul(price)
	sig.Profit = profit
	sig.Capital = t.portfolio.Capital
	sig.TotalProfit = t.portfolio.TotalRealizedProfit
	return sig
}

func (t *RSITrader) newSignal(now time.Time, price decimal.Decimal, rsi indicator.RSIValue) signal.Signal {
	return signal.Signal{
		Time:         now,
		Symbol:       t.symbol,
		Action:       position.None,
		StrategyName: t.Name(),
		Price:        price,
		RSI:          rsi.Value,
		RSIValid:     rsi.Valid,
		Capital:      t.portfolio.Capital,
		TotalProfit:  t.portfolio.TotalRealizedProfit,
	}
}

// Snapshot returns a copy of the position and balances as of now.
func (t *RSITrader) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Symbol:           t.symbol,
		State:            t.machine.GetCurrentState(),
		Capital:          t.portfolio.Capital,
		TotalProfit:      t.portfolio.TotalRealizedProfit,
		Quantity:         t.portfolio.QuantityHeld,
		EntryPrice:       t.portfolio.EntryPrice,
		TotalTransitions: t.machine.TotalTransitions(),
		LastTransition:   t.machine.GetLastTransition(),
		TimeInState:      t.machine.GetStateDuration(now).Seconds(),
	}
}
