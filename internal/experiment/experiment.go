// Package experiment runs the engine headlessly for a fixed number of frames
// with the default metrics and a frame recorder attached.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/input"
	"github.com/san-kum/morphcloud/internal/metrics"
	"github.com/san-kum/morphcloud/internal/storage"
)

var ErrNotSetup = errors.New("experiment: not set up")

const (
	DefaultFrames = 600
	DefaultDt     = 1.0 / 60
)

type Config struct {
	Engine *config.Config
	Preset string
	Frames int
	Dt     float64
	// RecordEvery keeps one frame record in RecordEvery; 0 records none.
	RecordEvery int
	// Hand overrides Engine.Input.HandScript when set.
	Hand    engine.HandSource
	Pointer engine.PointerSource
}

type Outcome struct {
	Result *engine.Result
	Frames []storage.FrameRecord
	Wall   time.Duration
}

type Experiment struct {
	cfg      Config
	eng      *engine.Engine
	recorder *storage.Recorder
	backend  string
}

func New(cfg Config) *Experiment {
	if cfg.Engine == nil {
		cfg.Engine = config.DefaultConfig()
	}
	if cfg.Frames == 0 {
		cfg.Frames = DefaultFrames
	}
	if cfg.Dt == 0 {
		cfg.Dt = DefaultDt
	}
	return &Experiment{cfg: cfg}
}

// Setup builds the engine. A nil backend is picked from the particle config.
func (e *Experiment) Setup(backend compute.Backend, log *slog.Logger) error {
	pc := e.cfg.Engine.Particles
	if backend == nil {
		b, ok := compute.ByName(pc.Backend, pc.Workers)
		if !ok {
			return fmt.Errorf("%w: unknown backend %q", engine.ErrInvalidConfig, pc.Backend)
		}
		backend = b
	}

	eng, err := engine.New(e.cfg.Engine, backend)
	if err != nil {
		return err
	}
	eng.SetLogger(log)

	hand := e.cfg.Hand
	if hand == nil && e.cfg.Engine.Input.HandScript != "" {
		script, err := input.LoadScript(e.cfg.Engine.Input.HandScript, false)
		if err != nil {
			return fmt.Errorf("hand script: %w", err)
		}
		hand = script
	}
	if hand != nil {
		eng.SetHandSource(hand)
	}
	if e.cfg.Pointer != nil {
		eng.SetPointerSource(e.cfg.Pointer)
	}

	for _, m := range metrics.Default() {
		eng.AddMetric(m)
	}
	if e.cfg.RecordEvery > 0 {
		e.recorder = storage.NewRecorder(e.cfg.RecordEvery)
		eng.AddObserver(e.recorder)
	}

	e.eng = eng
	e.backend = backend.Name()
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.eng == nil {
		return nil, ErrNotSetup
	}

	start := time.Now()
	res, err := e.eng.RunFrames(ctx, e.cfg.Frames, e.cfg.Dt)
	out := &Outcome{Result: res, Wall: time.Since(start)}
	if e.recorder != nil {
		out.Frames = e.recorder.Frames()
	}
	return out, err
}

// Engine returns the underlying engine for adding sinks before Run.
func (e *Experiment) Engine() *engine.Engine {
	return e.eng
}

func (e *Experiment) Metadata(out *Outcome) storage.RunMetadata {
	cfg := e.cfg.Engine
	meta := storage.RunMetadata{
		Shape:     cfg.Shape.String(),
		Mode:      cfg.Input.Mode.String(),
		Preset:    e.cfg.Preset,
		Seed:      cfg.Particles.Seed,
		Particles: cfg.Particles.Count,
		Backend:   e.backend,
		Dt:        e.cfg.Dt,
	}
	if out != nil && out.Result != nil {
		meta.FinalShape = out.Result.FinalShape.String()
		meta.Frames = out.Result.Frames
		meta.ShapeChanges = out.Result.ShapeChanges
		meta.Metrics = out.Result.Metrics
		if out.Wall > 0 {
			meta.TicksPerSec = float64(out.Result.Frames) / out.Wall.Seconds()
		}
	}
	return meta
}

// Save stores a finished outcome and returns the run ID.
func (e *Experiment) Save(st *storage.Store, out *Outcome) (string, error) {
	return st.Save(e.Metadata(out), out.Frames)
}
