package gesture

// Window is a fixed-capacity FIFO of finger-count observations.
type Window struct {
	data []int
	pos  int
	n    int
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{data: make([]int, capacity)}
}

// Push appends v, evicting the oldest entry when full.
func (w *Window) Push(v int) {
	w.data[w.pos] = v
	w.pos = (w.pos + 1) % len(w.data)
	if w.n < len(w.data) {
		w.n++
	}
}

func (w *Window) Len() int { return w.n }
func (w *Window) Cap() int { return len(w.data) }

func (w *Window) Reset() {
	w.pos = 0
	w.n = 0
}

// Slice returns the contents oldest first.
func (w *Window) Slice() []int {
	out := make([]int, w.n)
	start := (w.pos - w.n + len(w.data)) % len(w.data)
	for i := 0; i < w.n; i++ {
		out[i] = w.data[(start+i)%len(w.data)]
	}
	return out
}

// Mode returns the most frequent value and its count. Ties go to the
// smaller value.
func (w *Window) Mode() (value, count int) {
	var freq [MaxFingers + 1]int
	start := (w.pos - w.n + len(w.data)) % len(w.data)
	for i := 0; i < w.n; i++ {
		v := w.data[(start+i)%len(w.data)]
		if v < 0 || v > MaxFingers {
			continue
		}
		freq[v]++
	}
	for v, c := range freq {
		if c > count {
			value, count = v, c
		}
	}
	return value, count
}
