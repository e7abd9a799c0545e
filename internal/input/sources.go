// Package input provides pointer and hand sources for the engine: latest-value
// holders fed by viewers or detectors, and a CSV replay of recorded hand
// tracking.
package input

import (
	"sync"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/interact"
)

// Pointer holds the most recent pointer sample. Viewers write it from their
// event loop; the engine reads it once per tick.
type Pointer struct {
	mu     sync.Mutex
	sample interact.PointerSample
	ok     bool
}

func NewPointer() *Pointer { return &Pointer{} }

func (p *Pointer) Move(ndcX, ndcY float64) {
	p.mu.Lock()
	p.sample.NDC = [2]float64{ndcX, ndcY}
	p.ok = true
	p.mu.Unlock()
}

func (p *Pointer) Press(pressed bool) {
	p.mu.Lock()
	p.sample.Pressed = pressed
	p.mu.Unlock()
}

func (p *Pointer) Set(s interact.PointerSample) {
	p.mu.Lock()
	p.sample = s
	p.ok = true
	p.mu.Unlock()
}

// Leave marks the pointer as outside the view.
func (p *Pointer) Leave() {
	p.mu.Lock()
	p.ok = false
	p.sample.Pressed = false
	p.mu.Unlock()
}

func (p *Pointer) Pointer() (interact.PointerSample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sample, p.ok
}

// ScreenToNDC maps a pixel (or terminal cell) position to [-1,1]² with y up.
func ScreenToNDC(x, y float64, width, height int) (float64, float64) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	return 2*x/float64(width) - 1, 1 - 2*y/float64(height)
}

// Hand holds the latest detector output. Each published sample is reported
// fresh exactly once.
type Hand struct {
	mu     sync.Mutex
	sample interact.HandSample
	fresh  bool
	err    error
}

// NewHand starts unavailable until the first Publish.
func NewHand() *Hand {
	return &Hand{err: engine.ErrSourceUnavailable}
}

func (h *Hand) Publish(s interact.HandSample) {
	h.mu.Lock()
	h.sample = s
	h.fresh = true
	h.err = nil
	h.mu.Unlock()
}

// Fail marks the source unavailable until the next Publish.
func (h *Hand) Fail(err error) {
	if err == nil {
		err = engine.ErrSourceUnavailable
	}
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

func (h *Hand) Hand() (interact.HandSample, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return interact.HandSample{}, false, h.err
	}
	fresh := h.fresh
	h.fresh = false
	return h.sample, fresh, nil
}

var (
	_ engine.PointerSource = (*Pointer)(nil)
	_ engine.HandSource    = (*Hand)(nil)
	_ engine.HandSource    = (*Script)(nil)
)
