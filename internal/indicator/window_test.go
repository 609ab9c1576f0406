package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceWindow_PushEvictsOldest(t *testing.T) {
	w := NewPriceWindow(3)

	w.Push(1)
	w.Push(2)
	assert.Equal(t, []float64{1, 2}, w.Values())
	assert.False(t, w.Full())

	w.Push(3)
	assert.True(t, w.Full())

	w.Push(4)
	w.Push(5)
	assert.Equal(t, []float64{3, 4, 5}, w.Values())
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 3, w.Cap())
}

func TestPriceWindow_NeverExceedsCapacity(t *testing.T) {
	w := NewPriceWindow(14)

	for i := 0; i < 100; i++ {
		w.Push(float64(i))
		assert.LessOrEqual(t, w.Len(), 14)
	}
	assert.Equal(t, float64(86), w.Values()[0])
	assert.Equal(t, float64(99), w.Values()[13])
}

func TestPriceWindow_ValuesIsACopy(t *testing.T) {
	w := NewPriceWindow(2)
	w.Push(10)

	values := w.Values()
	values[0] = 99

	assert.Equal(t, []float64{10}, w.Values())
}

func TestPriceWindow_MinimumCapacity(t *testing.T) {
	w := NewPriceWindow(0)
	w.Push(1)
	w.Push(2)

	assert.Equal(t, 1, w.Cap())
	assert.Equal(t, []float64{2}, w.Values())
}

func TestPriceWindow_With(t *testing.T) {
	w := NewPriceWindow(3)
	assert.Equal(t, []float64{7}, w.With(7))

	w.Push(1)
	w.Push(2)
	assert.Equal(t, []float64{1, 2, 3}, w.With(3))

	w.Push(3)
	assert.Equal(t, []float64{2, 3, 4}, w.With(4))
	assert.Equal(t, []float64{1, 2, 3}, w.Values())
	assert.Equal(t, 3, w.Len())
}
