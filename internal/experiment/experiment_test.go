package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/input"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
	"github.com/san-kum/morphcloud/internal/storage"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Particles.Count = 200
	cfg.Particles.Seed = 11
	return cfg
}

func TestRunBeforeSetup(t *testing.T) {
	exp := New(Config{})
	if _, err := exp.Run(context.Background()); !errors.Is(err, ErrNotSetup) {
		t.Errorf("expected ErrNotSetup, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	exp := New(Config{})
	if exp.cfg.Frames != DefaultFrames || exp.cfg.Dt != DefaultDt {
		t.Errorf("expected default frames/dt, got %d/%f", exp.cfg.Frames, exp.cfg.Dt)
	}
	if exp.cfg.Engine == nil {
		t.Error("expected default engine config")
	}
}

func TestRunRecordsFrames(t *testing.T) {
	exp := New(Config{Engine: smallConfig(), Frames: 30, Dt: 0.02, RecordEvery: 10})
	if err := exp.Setup(compute.SerialBackend{}, nil); err != nil {
		t.Fatal(err)
	}

	out, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.Frames != 30 {
		t.Errorf("expected 30 frames, got %d", out.Result.Frames)
	}
	if len(out.Frames) != 3 {
		t.Errorf("expected 3 records, got %d", len(out.Frames))
	}
	for _, name := range []string{"convergence", "spread", "attract_share", "repel_share"} {
		if _, ok := out.Result.Metrics[name]; !ok {
			t.Errorf("expected metric %s", name)
		}
	}

	meta := exp.Metadata(out)
	if meta.Particles != 200 || meta.Seed != 11 || meta.Backend != "serial" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Frames != 30 || meta.FinalShape != "sphere" {
		t.Errorf("expected 30 frames ending on sphere, got %d %s", meta.Frames, meta.FinalShape)
	}
}

func TestUnknownBackend(t *testing.T) {
	cfg := smallConfig()
	cfg.Particles.Backend = "gpu"
	if err := New(Config{Engine: cfg}).Setup(nil, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestHandScriptSwitchesShape(t *testing.T) {
	cfg := smallConfig()
	cfg.Input.Mode = interact.Hand

	script, err := input.NewScript([]input.HandRow{
		{Hold: 20, Fingers: 4, X: 0.5, Y: 0.5, Detected: true},
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	exp := New(Config{Engine: cfg, Frames: 40, Dt: 0.02, Hand: script})
	if err := exp.Setup(compute.SerialBackend{}, nil); err != nil {
		t.Fatal(err)
	}
	out, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.FinalShape != shape.Heart {
		t.Errorf("expected heart, got %s", out.Result.FinalShape)
	}
	if out.Result.ShapeChanges != 1 {
		t.Errorf("expected one shape change, got %d", out.Result.ShapeChanges)
	}
}

func TestSave(t *testing.T) {
	exp := New(Config{Engine: smallConfig(), Frames: 5, RecordEvery: 1, Preset: "calm"})
	if err := exp.Setup(compute.SerialBackend{}, nil); err != nil {
		t.Fatal(err)
	}
	out, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	st := storage.New(t.TempDir())
	id, err := exp.Save(st, out)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Preset != "calm" {
		t.Errorf("expected preset calm, got %q", meta.Preset)
	}
	frames, err := st.LoadFrames(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 5 {
		t.Errorf("expected 5 stored frames, got %d", len(frames))
	}
}
