// Package engine runs the per-frame pipeline: read input, locate the
// interaction point, filter gestures, regenerate targets on a shape
// change, integrate all particles and notify the sinks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/morph"
	"github.com/san-kum/morphcloud/internal/particle"
	"github.com/san-kum/morphcloud/internal/shape"
	"github.com/san-kum/morphcloud/internal/telemetry"
)

// seconds between perf log lines in Run
const perfLogEvery = 5

type Engine struct {
	mu sync.Mutex

	cfg     *config.Config
	buf     *particle.Buffer
	gen     *shape.Generator
	integ   *morph.Integrator
	camera  *interact.Camera
	locator *interact.Locator
	filter  *gesture.Filter
	perf    *telemetry.PerfCollector
	log     *slog.Logger

	mode  interact.Mode
	shape shape.Kind

	pointer PointerSource
	hand    HandSource

	renderers []RenderSink
	audio     []AudioSink
	observers []Observer
	metrics   []Metric

	frame        Frame
	index        uint64
	elapsed      float64
	intensity    float64
	intensitySet bool
	shapeChanges int
	handErr      error
	errs         []error
}

// New allocates the particle buffer and generates the configured starting
// shape. A nil backend uses compute.GetBackend().
func New(cfg *config.Config, backend compute.Backend) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if backend == nil {
		backend = compute.GetBackend()
	}

	seed := cfg.Particles.Seed
	buf, err := particle.New(cfg.Particles.Count, rand.New(rand.NewSource(seed)), particle.DefaultPalette)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cam := interact.NewCamera(cfg.Camera.Distance, cfg.Camera.FOV, cfg.Camera.Aspect)
	cam.Near = cfg.Camera.Near
	cam.Far = cfg.Camera.Far

	loc := interact.NewLocator(cam)
	if cfg.Input.Depth != 0 {
		loc.Depth = cfg.Input.Depth
	}

	params := morph.Params{
		Alpha:         cfg.Morph.Alpha,
		AttractRadius: cfg.Morph.AttractRadius,
		RepelRadius:   cfg.Morph.RepelRadius,
		Jitter:        cfg.Morph.Jitter,
		DriftAmp:      cfg.Morph.DriftAmp,
		RepelGain:     cfg.Morph.RepelGain,
	}

	e := &Engine{
		cfg:     cfg,
		buf:     buf,
		gen:     shape.NewGenerator(rand.New(rand.NewSource(seed + 1))),
		integ:   morph.New(params, backend, seed+2),
		camera:  cam,
		locator: loc,
		filter:  gesture.NewFilter(cfg.Gesture.Capacity, cfg.Gesture.Threshold),
		perf:    telemetry.NewPerfCollector(cfg.Render.FPS),
		log:     slog.Default(),
		mode:    cfg.Input.Mode,
		shape:   cfg.Shape,
	}
	e.gen.Generate(e.shape, e.buf.Targets)
	return e, nil
}

func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.log = l
	}
}

func (e *Engine) AddRenderer(r RenderSink) { e.renderers = append(e.renderers, r) }
func (e *Engine) AddAudio(a AudioSink)     { e.audio = append(e.audio, a) }
func (e *Engine) AddObserver(o Observer)   { e.observers = append(e.observers, o) }
func (e *Engine) AddMetric(m Metric)       { e.metrics = append(e.metrics, m) }

func (e *Engine) SetPointerSource(p PointerSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointer = p
}

func (e *Engine) SetHandSource(h HandSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hand = h
}

func (e *Engine) SetMode(m interact.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m != e.mode {
		e.log.Info("input mode changed", "from", e.mode, "to", m)
	}
	e.mode = m
	e.filter.Reset()
}

func (e *Engine) Mode() interact.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Engine) Shape() shape.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shape
}

// SetShape regenerates every target for kind. Setting the current shape
// again draws a fresh sample of it. Panics on an unknown kind.
func (e *Engine) SetShape(kind shape.Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyShape(kind, "manual")
}

// NextShape cycles to the following shape and returns it.
func (e *Engine) NextShape() shape.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.shape.Next()
	e.applyShape(next, "manual")
	return next
}

func (e *Engine) applyShape(kind shape.Kind, cause string) {
	if !kind.Valid() {
		panic(fmt.Sprintf("engine: unknown shape kind %d", int(kind)))
	}
	e.gen.Generate(kind, e.buf.Targets)
	e.log.Info("shape changed", "from", e.shape, "to", kind, "cause", cause, "frame", e.index)
	e.shape = kind
	e.shapeChanges++
	e.filter.Reset()
	for _, a := range e.audio {
		a.ShapeChanged()
	}
}

func (e *Engine) Camera() *interact.Camera { return e.camera }

// Resize updates the camera aspect for a new viewport.
func (e *Engine) Resize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.camera.Resize(width, height)
}

func (e *Engine) Buffer() *particle.Buffer      { return e.buf }
func (e *Engine) Config() *config.Config        { return e.cfg }
func (e *Engine) Perf() telemetry.PerfStats     { return e.perf.Stats() }
func (e *Engine) GestureWindow() []int          { return e.filter.Window() }
func (e *Engine) Integrator() *morph.Integrator { return e.integ }

// Tick runs one frame at time t (seconds since start) and returns the
// frame passed to the sinks. The returned frame is reused by the next tick.
func (e *Engine) Tick(t float64) *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.perf.StartTick()
	e.perf.StartPhase(telemetry.PhaseInput)

	mode := e.mode
	var (
		pointer *interact.PointerSample
		hand    *interact.HandSample
		fresh   bool
	)

	if mode == interact.Hand {
		sample, f, err := e.readHand()
		if err != nil {
			e.noteHandError(t, err)
			if e.cfg.Input.Fallback {
				mode = interact.Pointer
			}
		} else {
			e.noteHandOK()
			hand, fresh = &sample, f
		}
	}
	if mode == interact.Pointer && e.pointer != nil {
		if sample, ok := e.pointer.Pointer(); ok {
			pointer = &sample
		}
	}

	st := e.locator.Locate(mode, pointer, hand)

	e.perf.StartPhase(telemetry.PhaseGesture)
	if hand != nil && fresh && hand.Detected {
		if next, ok := e.filter.Observe(hand.FingerCount, e.shape); ok {
			e.applyShape(next, "gesture")
		}
	}

	e.perf.StartPhase(telemetry.PhaseIntegrate)
	stats := e.integ.Step(e.buf, t, st)

	intensity := e.cfg.Intensity(st.Active, st.Attracting)
	if !e.intensitySet || intensity != e.intensity {
		e.intensity = intensity
		e.intensitySet = true
		for _, a := range e.audio {
			a.SetIntensity(intensity)
		}
	}

	e.perf.StartPhase(telemetry.PhaseRender)
	e.frame = Frame{
		Index:       e.index,
		Time:        t,
		Positions:   e.buf.Positions,
		Targets:     e.buf.Targets,
		Colors:      e.buf.Colors,
		Sizes:       e.buf.Sizes,
		Transform:   morph.Transform(t),
		Shape:       e.shape,
		Interaction: st,
		Stats:       stats,
		Intensity:   intensity,
	}
	for _, r := range e.renderers {
		r.PositionsChanged(&e.frame)
	}
	for _, o := range e.observers {
		o.OnFrame(&e.frame)
	}
	for _, m := range e.metrics {
		m.Observe(&e.frame)
	}
	e.perf.EndTick()

	e.index++
	e.elapsed = t
	return &e.frame
}

func (e *Engine) readHand() (interact.HandSample, bool, error) {
	if e.hand == nil {
		return interact.HandSample{}, false, ErrNoSource
	}
	return e.hand.Hand()
}

// noteHandError logs and records only the first failure of a streak.
func (e *Engine) noteHandError(t float64, err error) {
	if e.handErr != nil && errors.Is(err, e.handErr) {
		return
	}
	e.handErr = err
	e.errs = append(e.errs, &FrameError{Frame: e.index, Time: t, Wrapped: err})
	e.log.Warn("hand source failed", "err", err, "frame", e.index, "fallback", e.cfg.Input.Fallback)
}

func (e *Engine) noteHandOK() {
	if e.handErr != nil {
		e.log.Info("hand source recovered", "frame", e.index)
		e.handErr = nil
	}
}

// Run ticks at the configured frame rate until ctx is done. Ticks are
// never interrupted midway.
func (e *Engine) Run(ctx context.Context) error {
	fps := e.cfg.Render.FPS
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	start := time.Now()
	logEvery := uint64(fps * perfLogEvery)

	e.log.Info("engine running", "particles", e.buf.N, "fps", fps, "shape", e.shape, "mode", e.mode)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped", "frames", e.index, "reason", ctx.Err())
			return ctx.Err()
		case now := <-ticker.C:
			f := e.Tick(now.Sub(start).Seconds())
			if logEvery > 0 && f.Index > 0 && f.Index%logEvery == 0 {
				stats := e.perf.Stats()
				if stats.OverBudget(fps) {
					e.log.Warn("frame budget exceeded", "perf", stats)
				} else {
					e.log.Debug("perf", "perf", stats)
				}
			}
		}
	}
}

// RunFrames ticks n times with a synthetic clock advancing by dt per frame,
// continuing from the last tick's time. On cancellation the partial result
// is returned with ctx.Err().
func (e *Engine) RunFrames(ctx context.Context, n int, dt float64) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: frame count must be positive, got %d", ErrInvalidConfig, n)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, dt)
	}

	for _, m := range e.metrics {
		m.Reset()
	}

	e.mu.Lock()
	t := e.elapsed
	started := e.index > 0
	changesBefore := e.shapeChanges
	errsBefore := len(e.errs)
	e.mu.Unlock()

	result := &Result{Metrics: make(map[string]float64)}
	var runErr error
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}
		if started || i > 0 {
			t += dt
		}
		e.Tick(t)
		result.Frames++
	}

	e.mu.Lock()
	result.Duration = float64(result.Frames) * dt
	result.FinalShape = e.shape
	result.ShapeChanges = e.shapeChanges - changesBefore
	result.Errors = append(result.Errors, e.errs[errsBefore:]...)
	e.mu.Unlock()

	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Perf = e.perf.Stats()
	return result, runErr
}
