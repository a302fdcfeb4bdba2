package utils

import (
	"math"
	"sort"
)

//Window keeps the last 'size' values pushed to it, used to smooth noisy per-frame measurements
type Window struct {
	size   int
	values []float64
}

//NewWindow returns an empty window. size smaller than 1 is treated as 1
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}

	return &Window{size: size, values: make([]float64, 0, size)}
}

//Push adds a value, dropping the oldest one when the window is full. NaN values are ignored
func (w *Window) Push(v float64) {
	if math.IsNaN(v) {
		return
	}

	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
}

//Median returns the median of the values in the window, NaN when empty
func (w *Window) Median() float64 {
	if len(w.values) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(w.values))
	copy(sorted, w.values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}

//Len returns the number of values currently in the window
func (w *Window) Len() int {
	return len(w.values)
}

//Reset empties the window
func (w *Window) Reset() {
	w.values = w.values[:0]
}
