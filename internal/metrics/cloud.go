// Package metrics summarises the particle cloud frame by frame.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/morphcloud/internal/engine"
)

// MeanTargetDistance is the average distance between each particle and its
// target.
func MeanTargetDistance(positions, targets []float32) float64 {
	n := len(positions) / 3
	if n == 0 || len(targets) < len(positions) {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		dx := float64(positions[i*3] - targets[i*3])
		dy := float64(positions[i*3+1] - targets[i*3+1])
		dz := float64(positions[i*3+2] - targets[i*3+2])
		sum += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return sum / float64(n)
}

// Radii writes each particle's distance from the origin into dst, growing
// it when needed.
func Radii(dst []float64, positions []float32) []float64 {
	n := len(positions) / 3
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i := range dst {
		x, y, z := float64(positions[i*3]), float64(positions[i*3+1]), float64(positions[i*3+2])
		dst[i] = math.Sqrt(x*x + y*y + z*z)
	}
	return dst
}

// Convergence reports how far the cloud still is from its targets, as of
// the last observed frame.
type Convergence struct {
	last float64
}

func NewConvergence() *Convergence { return &Convergence{} }

func (c *Convergence) Name() string { return "convergence" }

func (c *Convergence) Observe(f *engine.Frame) {
	c.last = MeanTargetDistance(f.Positions, f.Targets)
}

func (c *Convergence) Value() float64 { return c.last }
func (c *Convergence) Reset()         { c.last = 0 }

// Spread tracks the mean and standard deviation of particle radii.
type Spread struct {
	radii []float64
	mean  float64
	std   float64
}

func NewSpread() *Spread { return &Spread{} }

func (s *Spread) Name() string { return "spread" }

func (s *Spread) Observe(f *engine.Frame) {
	s.radii = Radii(s.radii, f.Positions)
	if len(s.radii) == 0 {
		return
	}
	s.mean, s.std = stat.MeanStdDev(s.radii, nil)
}

// Value is the mean radius.
func (s *Spread) Value() float64  { return s.mean }
func (s *Spread) StdDev() float64 { return s.std }

func (s *Spread) Reset() {
	s.mean, s.std = 0, 0
}

// InteractionShare is the average fraction of particles pulled (or pushed)
// by the interaction point per frame.
type InteractionShare struct {
	name    string
	attract bool
	sum     float64
	frames  int
}

func NewAttractShare() *InteractionShare {
	return &InteractionShare{name: "attract_share", attract: true}
}

func NewRepelShare() *InteractionShare {
	return &InteractionShare{name: "repel_share"}
}

func (m *InteractionShare) Name() string { return m.name }

func (m *InteractionShare) Observe(f *engine.Frame) {
	n := len(f.Positions) / 3
	if n == 0 {
		return
	}
	count := f.Stats.Repelled
	if m.attract {
		count = f.Stats.Attracted
	}
	m.sum += float64(count) / float64(n)
	m.frames++
}

func (m *InteractionShare) Value() float64 {
	if m.frames == 0 {
		return 0
	}
	return m.sum / float64(m.frames)
}

func (m *InteractionShare) Reset() {
	m.sum = 0
	m.frames = 0
}

// Default returns the metric set used by headless runs.
func Default() []engine.Metric {
	return []engine.Metric{NewConvergence(), NewSpread(), NewAttractShare(), NewRepelShare()}
}
