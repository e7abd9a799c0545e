// Package gesture stabilises a noisy per-frame finger count into shape
// changes by requiring a strong majority over a short sliding window.
package gesture

import "github.com/san-kum/morphcloud/internal/shape"

const (
	DefaultCapacity  = 15
	DefaultThreshold = 0.8

	MaxFingers = 5
)

var fingerShapes = map[int]shape.Kind{
	2: shape.Flower,
	3: shape.Saturn,
	4: shape.Heart,
	5: shape.Fireworks,
}

// ShapeFor maps a finger count to its shape. Counts 0 and 1 have none.
func ShapeFor(fingers int) (shape.Kind, bool) {
	k, ok := fingerShapes[fingers]
	return k, ok
}

type Filter struct {
	window    *Window
	threshold float64
}

func NewFilter(capacity int, threshold float64) *Filter {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Filter{window: NewWindow(capacity), threshold: threshold}
}

func NewDefaultFilter() *Filter {
	return NewFilter(DefaultCapacity, DefaultThreshold)
}

// Observe records one finger count and returns a committed shape change,
// if any. A commit happens when more than threshold*capacity of the window
// agrees on a count that maps to a shape other than current; the window is
// emptied afterwards.
func (f *Filter) Observe(fingers int, current shape.Kind) (shape.Kind, bool) {
	f.window.Push(clampFingers(fingers))

	value, count := f.window.Mode()
	if float64(count) <= f.threshold*float64(f.window.Cap()) {
		return current, false
	}

	next, ok := ShapeFor(value)
	if !ok || next == current {
		return current, false
	}

	f.window.Reset()
	return next, true
}

func (f *Filter) Reset() { f.window.Reset() }

// Window exposes the observation history, oldest first.
func (f *Filter) Window() []int { return f.window.Slice() }

func clampFingers(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxFingers {
		return MaxFingers
	}
	return v
}
