package signal

import (
	"time"

	"github.com/amirphl/rsi-trader/internal/strategy/position"
	"github.com/shopspring/decimal"
)

// Exit reasons reported on SELL signals.
const (
	ReasonTarget = "target"
	ReasonRSI    = "rsi"
)

// Signal is the outcome of one strategy evaluation. Fields that do not apply
// to the action are left at their zero value.
type Signal struct {
	Time            time.Time       `json:"time"`
	Symbol          string          `json:"symbol"`
	Action          position.Action `json:"action"`
	Reason          string          `json:"reason"`
	StrategyName    string          `json:"strategy_name"`
	Price           decimal.Decimal `json:"price"`
	RSI             float64         `json:"rsi"`
	RSIValid        bool            `json:"rsi_valid"`
	Quantity        decimal.Decimal `json:"quantity"`
	EntryPrice      decimal.Decimal `json:"entry_price"`
	TargetSellPrice decimal.Decimal `json:"target_sell_price"`
	MarketValue     decimal.Decimal `json:"market_value"`
	Profit          decimal.Decimal `json:"profit"` // realized on SELL, unrealized on HOLD
	Capital         decimal.Decimal `json:"capital"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
}

// IsTrade reports whether the signal opened or closed a position.
func (s Signal) IsTrade() bool {
	return s.Action == position.Buy || s.Action == position.Sell
}
