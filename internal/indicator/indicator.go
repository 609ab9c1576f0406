package indicator

// Indicator is the interface for window-based technical indicators.
type Indicator interface {
	Name() string
	Calculate(window []float64) RSIValue
}
