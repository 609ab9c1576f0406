package indicator

// PriceWindow keeps the most recent prices up to a fixed capacity. Pushing
// onto a full window evicts the oldest price. It is not safe for concurrent
// use; the tick loop is its only writer.
type PriceWindow struct {
	prices   []float64
	capacity int
}

// NewPriceWindow creates an empty window holding at most capacity prices.
func NewPriceWindow(capacity int) *PriceWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &PriceWindow{
		prices:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a price, dropping the oldest one if the window is full.
func (w *PriceWindow) Push(price float64) {
	if len(w.prices) == w.capacity {
		copy(w.prices, w.prices[1:])
		w.prices = w.prices[:len(w.prices)-1]
	}
	w.prices = append(w.prices, price)
}

// With returns the prices the window would hold after Push(price), oldest
// first, without changing the window.
func (w *PriceWindow) With(price float64) []float64 {
	start := 0
	if len(w.prices) == w.capacity {
		start = 1
	}
	out := make([]float64, 0, w.capacity)
	out = append(out, w.prices[start:]...)
	return append(out, price)
}

// Values returns a copy of the prices, oldest first.
func (w *PriceWindow) Values() []float64 {
	out := make([]float64, len(w.prices))
	copy(out, w.prices)
	return out
}

func (w *PriceWindow) Len() int { return len(w.prices) }

func (w *PriceWindow) Cap() int { return w.capacity }

// Full reports whether the window holds capacity prices.
func (w *PriceWindow) Full() bool { return len(w.prices) == w.capacity }
