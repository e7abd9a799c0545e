package engine

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/morph"
	"github.com/san-kum/morphcloud/internal/shape"
	"github.com/san-kum/morphcloud/internal/telemetry"
)

// Frame is the read-only view handed to sinks after every tick. The slices
// alias the live particle buffer and are only valid until the next tick;
// sinks that keep data must copy it.
type Frame struct {
	Index     uint64
	Time      float64
	Positions []float32
	Targets   []float32
	Colors    []float32
	Sizes     []float32
	// Transform is the whole-cloud rotation applied at render time.
	Transform mgl64.Mat4

	Shape       shape.Kind
	Interaction interact.State
	Stats       morph.StepStats
	Intensity   float64
}

// RenderSink is notified once per tick, unconditionally. Sinks run on the
// ticking goroutine while the engine is locked and must not call back into it.
type RenderSink interface {
	PositionsChanged(f *Frame)
}

// AudioSink receives intensity changes and shape-change events.
type AudioSink interface {
	SetIntensity(v float64)
	ShapeChanged()
}

type PointerSource interface {
	// Pointer returns the latest sample; ok is false when there is none.
	Pointer() (sample interact.PointerSample, ok bool)
}

type HandSource interface {
	// Hand returns the latest detector output. fresh is false when the
	// sample was already delivered on an earlier call.
	Hand() (sample interact.HandSample, fresh bool, err error)
}

type Observer interface {
	OnFrame(f *Frame)
}

type Metric interface {
	Name() string
	Observe(f *Frame)
	Value() float64
	Reset()
}

// Result summarises a bounded run.
type Result struct {
	Frames       int
	Duration     float64
	FinalShape   shape.Kind
	ShapeChanges int
	Metrics      map[string]float64
	Perf         telemetry.PerfStats
	Errors       []error
}
