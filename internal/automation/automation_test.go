package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
	"github.com/san-kum/morphcloud/internal/storage"
)

const scenarioYAML = `name: tour
description: two quick runs
steps:
  - name: calm-heart
    preset: calm
    shape: heart
    particles: 150
    frames: 12
    save: true
  - particles: 100
    mode: hand
    frames: 8
    morph:
      alpha: 0.2
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "tour" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Steps[0].Shape == nil || *sc.Steps[0].Shape != shape.Heart {
		t.Errorf("expected heart shape on step 1")
	}
	if sc.Steps[1].Mode == nil || *sc.Steps[1].Mode != interact.Hand {
		t.Errorf("expected hand mode on step 2")
	}

	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); err == nil {
		t.Error("expected error for scenario without steps")
	}
	if _, err := LoadScenario(writeScenario(t, "steps:\n  - shape: cube\n")); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestStepConfig(t *testing.T) {
	base := config.DefaultConfig()
	base.Particles.Count = 500

	cfg, err := ScenarioStep{Seed: 9, Morph: map[string]float64{"jitter": 1}}.Config(base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Particles.Count != 500 || cfg.Particles.Seed != 9 || cfg.Morph.Jitter != 1 {
		t.Errorf("unexpected config %+v", cfg.Particles)
	}
	if base.Morph.Jitter == 1 {
		t.Error("step must not modify the base config")
	}

	cfg, err = ScenarioStep{Preset: "vortex"}.Config(base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Shape != shape.Saturn {
		t.Errorf("expected vortex preset shape, got %s", cfg.Shape)
	}

	if _, err := (ScenarioStep{Preset: "nope"}).Config(base); err == nil {
		t.Error("expected error for unknown preset")
	}
	if _, err := (ScenarioStep{Morph: map[string]float64{"gravity": 1}}).Config(base); err == nil {
		t.Error("expected error for unknown morph parameter")
	}
	if _, err := (ScenarioStep{Morph: map[string]float64{"alpha": 2}}).Config(base); err == nil {
		t.Error("expected validation error for alpha > 1")
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	st := storage.New(t.TempDir())

	results, err := RunScenario(context.Background(), sc, nil, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID == "" {
		t.Error("expected saved run for step 1")
	}
	if results[1].RunID != "" {
		t.Error("step 2 should not be saved")
	}
	if results[1].Name != "step-2" {
		t.Errorf("expected generated name step-2, got %s", results[1].Name)
	}
	if results[0].Outcome.Result.Frames != 12 || results[1].Outcome.Result.Frames != 8 {
		t.Errorf("unexpected frame counts")
	}

	meta, err := st.Load(results[0].RunID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Shape != "heart" || meta.Preset != "calm" {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestRunScenarioSaveWithoutStore(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{{Particles: 50, Frames: 2, Save: true}}}
	if _, err := RunScenario(context.Background(), sc, nil, nil, nil); err == nil {
		t.Error("expected error when saving without a store")
	}
}

func TestRunSweep(t *testing.T) {
	base := config.DefaultConfig()
	base.Particles.Count = 100

	results, err := RunSweep(context.Background(), &ParameterSweep{
		Base:      base,
		ParamName: "alpha",
		ParamMin:  0.02,
		ParamMax:  0.2,
		NumSteps:  3,
		Frames:    20,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []float64{0.02, 0.11, 0.2}
	for i, r := range results {
		if diff := r.ParamValue - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("step %d: expected %f, got %f", i, want[i], r.ParamValue)
		}
	}
	// a faster pull leaves particles closer to their targets
	if results[2].Metrics["convergence"] >= results[0].Metrics["convergence"] {
		t.Errorf("expected alpha 0.2 to converge further than 0.02: %f vs %f",
			results[2].Metrics["convergence"], results[0].Metrics["convergence"])
	}

	if _, err := RunSweep(context.Background(), &ParameterSweep{ParamName: "mass", NumSteps: 1, Frames: 1}, nil); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := RunSweep(context.Background(), &ParameterSweep{ParamName: "alpha"}, nil); err == nil {
		t.Error("expected error for zero steps")
	}
}

func TestMonteCarlo(t *testing.T) {
	base := config.DefaultConfig()
	base.Particles.Count = 80

	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Base:      base,
		NumTrials: 3,
		Frames:    10,
		Seed:      100,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(results))
	}
	for i, r := range results {
		if r.Seed != 100+int64(i) {
			t.Errorf("trial %d: expected seed %d, got %d", i, 100+i, r.Seed)
		}
	}

	mean, std := MonteCarloStats(results, "spread")
	if mean <= 0 {
		t.Errorf("expected positive mean spread, got %f", mean)
	}
	if std < 0 {
		t.Errorf("expected non-negative std, got %f", std)
	}

	if m, s := MonteCarloStats(nil, "spread"); m != 0 || s != 0 {
		t.Errorf("expected zeros for no trials, got %f %f", m, s)
	}
}
