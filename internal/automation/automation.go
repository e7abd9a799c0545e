package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/experiment"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
	"github.com/san-kum/morphcloud/internal/storage"
)

// Scenario defines a scripted sequence of headless runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run. Zero values inherit from the preset (or the
// base config when no preset is named).
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Shape      *shape.Kind        `yaml:"shape"`
	Mode       *interact.Mode     `yaml:"mode"`
	Particles  int                `yaml:"particles"`
	Seed       int64              `yaml:"seed"`
	Frames     int                `yaml:"frames"`
	Dt         float64            `yaml:"dt"`
	HandScript string             `yaml:"hand_script"`
	Morph      map[string]float64 `yaml:"morph"`
	Save       bool               `yaml:"save"`
}

type StepResult struct {
	Name    string
	RunID   string
	Outcome *experiment.Outcome
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}

	return &scenario, nil
}

// Config resolves the step against base.
func (s ScenarioStep) Config(base *config.Config) (*config.Config, error) {
	var cfg config.Config
	switch {
	case s.Preset != "":
		p := config.GetPreset(s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", s.Preset, config.ListPresets())
		}
		cfg = *p
	case base != nil:
		cfg = *base
	default:
		cfg = *config.DefaultConfig()
	}

	if s.Shape != nil {
		cfg.Shape = *s.Shape
	}
	if s.Mode != nil {
		cfg.Input.Mode = *s.Mode
	}
	if s.Particles > 0 {
		cfg.Particles.Count = s.Particles
	}
	if s.Seed != 0 {
		cfg.Particles.Seed = s.Seed
	}
	if s.HandScript != "" {
		cfg.Input.HandScript = s.HandScript
	}
	for k, v := range s.Morph {
		if err := cfg.Morph.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunScenario executes all steps in order. Steps with Save set are written
// to st, which may be nil when no step saves.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, st *storage.Store, log *slog.Logger) ([]StepResult, error) {
	if log == nil {
		log = slog.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		log.Info("scenario step", "scenario", scenario.Name, "step", name, "index", i+1, "of", len(scenario.Steps))

		cfg, err := step.Config(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		record := 0
		if step.Save {
			record = 1
		}
		exp := experiment.New(experiment.Config{
			Engine:      cfg,
			Preset:      step.Preset,
			Frames:      step.Frames,
			Dt:          step.Dt,
			RecordEvery: record,
		})
		if err := exp.Setup(nil, log); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		out, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		res := StepResult{Name: name, Outcome: out}
		if step.Save {
			if st == nil {
				return results, fmt.Errorf("step %d: save requested without a store", i+1)
			}
			if res.RunID, err = exp.Save(st, out); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, res)
	}

	return results, nil
}

// ParameterSweep runs the same configuration across a range of one morph
// parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Frames    int
	Dt        float64
}

// SweepResult holds the final metrics for one parameter value
type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	FinalShape shape.Kind
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, log *slog.Logger) ([]SweepResult, error) {
	if log == nil {
		log = slog.Default()
	}
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	base := sweep.Base
	if base == nil {
		base = config.DefaultConfig()
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := *base
		if err := cfg.Morph.SetParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		out, err := runOnce(ctx, &cfg, sweep.Frames, sweep.Dt, log)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			Metrics:    out.Result.Metrics,
			FinalShape: out.Result.FinalShape,
		})
		log.Debug("sweep", "step", i+1, "of", sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

// MonteCarloConfig repeats one configuration with consecutive seeds.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	Frames    int
	Dt        float64
	Seed      int64
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Metrics map[string]float64
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log *slog.Logger) ([]MonteCarloResult, error) {
	if log == nil {
		log = slog.Default()
	}
	base := cfg.Base
	if base == nil {
		base = config.DefaultConfig()
	}

	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		c := *base
		c.Particles.Seed = cfg.Seed + int64(trial)

		out, err := runOnce(ctx, &c, cfg.Frames, cfg.Dt, log)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		results = append(results, MonteCarloResult{
			TrialID: trial,
			Seed:    c.Particles.Seed,
			Metrics: out.Result.Metrics,
		})

		if (trial+1)%10 == 0 {
			log.Info("monte carlo", "done", trial+1, "of", cfg.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats returns the mean and standard deviation of one metric
// across trials.
func MonteCarloStats(results []MonteCarloResult, metric string) (mean, std float64) {
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if v, ok := r.Metrics[metric]; ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, 0
	}
	if len(values) == 1 {
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

func runOnce(ctx context.Context, cfg *config.Config, frames int, dt float64, log *slog.Logger) (*experiment.Outcome, error) {
	exp := experiment.New(experiment.Config{Engine: cfg, Frames: frames, Dt: dt})
	if err := exp.Setup(nil, log); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}
