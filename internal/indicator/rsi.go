package indicator

import "math"

// RSIValue is an RSI reading. Valid is false while there is not enough
// history to compute one.
type RSIValue struct {
	Value float64
	Valid bool
}

// noLossRS is the relative strength used when the window contains no losses.
// It keeps the division finite and pins RSI at 100 - 100/101 (99.01) instead
// of a flat 100.
const noLossRS = 100

// RSI computes the Relative Strength Index over a full price window using
// simple averages of the per-step gains and losses.
type RSI struct {
	Period int
}

// NewRSI creates an RSI indicator that needs period prices before it reports.
func NewRSI(period int) *RSI {
	return &RSI{Period: period}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Calculate(window []float64) RSIValue {
	return CalculateRSI(window, r.Period)
}

// CalculateRSI returns the RSI of the whole window, rounded to two decimals.
// The result is invalid when the window holds fewer than period prices.
func CalculateRSI(window []float64, period int) RSIValue {
	if period < 2 || len(window) < period {
		return RSIValue{}
	}

	deltas := len(window) - 1
	gains := make([]float64, deltas)
	losses := make([]float64, deltas)
	for i := 1; i < len(window); i++ {
		diff := window[i] - window[i-1]
		if diff > 0 {
			gains[i-1] = diff
		} else if diff < 0 {
			losses[i-1] = -diff
		}
	}

	avgGain := mean(gains)
	avgLoss := mean(losses)

	rs := float64(noLossRS)
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	rsi := 100 - 100/(1+rs)

	return RSIValue{Value: round2(rsi), Valid: true}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
