// Package morph advances particle positions toward their shape targets,
// bending the targets around the interaction point.
package morph

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/particle"
)

const (
	DefaultAlpha         = 0.05
	DefaultAttractRadius = 40.0
	DefaultRepelRadius   = 25.0
	DefaultJitter        = 2.5
	DefaultDriftAmp      = 0.5
	DefaultRepelGain     = 2.0

	YawRate  = 0.05
	RollRate = 0.02

	minChunk = 1024
)

type Params struct {
	Alpha         float64
	AttractRadius float64
	RepelRadius   float64
	Jitter        float64
	DriftAmp      float64
	RepelGain     float64
}

func DefaultParams() Params {
	return Params{
		Alpha:         DefaultAlpha,
		AttractRadius: DefaultAttractRadius,
		RepelRadius:   DefaultRepelRadius,
		Jitter:        DefaultJitter,
		DriftAmp:      DefaultDriftAmp,
		RepelGain:     DefaultRepelGain,
	}
}

// StepStats counts particles touched by the interaction in one frame.
type StepStats struct {
	Attracted int
	Repelled  int
}

// Integrator owns the position buffer's evolution. Each compute worker has
// its own random source for the attraction jitter.
type Integrator struct {
	params  Params
	backend compute.Backend
	rngs    []*rand.Rand
	stats   []StepStats
}

func New(params Params, backend compute.Backend, seed int64) *Integrator {
	if backend == nil {
		backend = compute.GetBackend()
	}
	n := backend.Workers()
	rngs := make([]*rand.Rand, n)
	for w := range rngs {
		rngs[w] = rand.New(rand.NewSource(seed + int64(w)*7919))
	}
	return &Integrator{
		params:  params,
		backend: backend,
		rngs:    rngs,
		stats:   make([]StepStats, n),
	}
}

func (m *Integrator) Params() Params { return m.params }

// Step advances every particle by one frame at time t (seconds). The
// smoothing is per frame, not per second.
func (m *Integrator) Step(buf *particle.Buffer, t float64, st interact.State) StepStats {
	for w := range m.stats {
		m.stats[w] = StepStats{}
	}

	m.backend.ParallelFor(buf.N, minChunk, func(worker, start, end int) {
		m.stepRange(buf, t, st, worker, start, end)
	})

	var total StepStats
	for _, s := range m.stats {
		total.Attracted += s.Attracted
		total.Repelled += s.Repelled
	}
	return total
}

func (m *Integrator) stepRange(buf *particle.Buffer, t float64, st interact.State, worker, start, end int) {
	p := m.params
	rng := m.rngs[worker]
	stats := &m.stats[worker]
	pos, target := buf.Positions, buf.Targets
	ix, iy, iz := st.Point.X(), st.Point.Y(), st.Point.Z()

	for i := start; i < end; i++ {
		k := i * 3
		px, py, pz := float64(pos[k]), float64(pos[k+1]), float64(pos[k+2])

		tx, ty, tz := float64(target[k]), float64(target[k+1]), float64(target[k+2])
		tx += math.Sin(2*t+float64(i)) * p.DriftAmp
		ty += math.Cos(1.5*t+float64(i)) * p.DriftAmp

		if st.Active {
			dx, dy, dz := ix-px, iy-py, iz-pz
			d := math.Sqrt(dx*dx + dy*dy + dz*dz)

			switch {
			case st.Attracting && d < p.AttractRadius:
				tx = ix + (rng.Float64()*2-1)*p.Jitter
				ty = iy + (rng.Float64()*2-1)*p.Jitter
				tz = iz + (rng.Float64()*2-1)*p.Jitter
				stats.Attracted++
			case !st.Attracting && d < p.RepelRadius:
				force := (p.RepelRadius - d) / p.RepelRadius
				tx -= dx * force * p.RepelGain
				ty -= dy * force * p.RepelGain
				tz -= dz * force * p.RepelGain
				stats.Repelled++
			}
		}

		pos[k] = float32(px + (tx-px)*p.Alpha)
		pos[k+1] = float32(py + (ty-py)*p.Alpha)
		pos[k+2] = float32(pz + (tz-pz)*p.Alpha)
	}
}

// Rotation returns the whole-cloud yaw and roll at time t.
func Rotation(t float64) (yaw, roll float64) {
	return t * YawRate, t * RollRate
}

// Transform is the render-time model matrix for time t. Positions are never
// rotated in place.
func Transform(t float64) mgl64.Mat4 {
	yaw, roll := Rotation(t)
	return mgl64.HomogRotate3DY(yaw).Mul4(mgl64.HomogRotate3DZ(roll))
}
