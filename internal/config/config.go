package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
)

const (
	DefaultParticles = 15000
	DefaultFOV       = 75.0
	DefaultDistance  = 100.0
	DefaultAspect    = 16.0 / 9.0
	DefaultFPS       = 60
	DefaultAlpha     = 0.05
	DefaultCapacity  = 15
	DefaultThreshold = 0.8
	DefaultAddr      = "localhost:8080"

	IntensityIdle    = 0.0
	IntensityRepel   = 0.35
	IntensityAttract = 1.0
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Particles ParticleConfig `yaml:"particles"`
	Shape     shape.Kind     `yaml:"shape"`
	Camera    CameraConfig   `yaml:"camera"`
	Morph     MorphConfig    `yaml:"morph"`
	Gesture   GestureConfig  `yaml:"gesture"`
	Input     InputConfig    `yaml:"input"`
	Audio     AudioConfig    `yaml:"audio"`
	Render    RenderConfig   `yaml:"render"`
	Stream    StreamConfig   `yaml:"stream"`
}

type ParticleConfig struct {
	Count   int    `yaml:"count"`
	Seed    int64  `yaml:"seed"`
	Backend string `yaml:"backend"`
	Workers int    `yaml:"workers"`
}

type CameraConfig struct {
	FOV      float64 `yaml:"fov"`
	Distance float64 `yaml:"distance"`
	Aspect   float64 `yaml:"aspect"`
	Near     float64 `yaml:"near"`
	Far      float64 `yaml:"far"`
}

type MorphConfig struct {
	Alpha         float64 `yaml:"alpha"`
	AttractRadius float64 `yaml:"attract_radius"`
	RepelRadius   float64 `yaml:"repel_radius"`
	Jitter        float64 `yaml:"jitter"`
	DriftAmp      float64 `yaml:"drift"`
	RepelGain     float64 `yaml:"repel_gain"`
}

type GestureConfig struct {
	Capacity  int     `yaml:"capacity"`
	Threshold float64 `yaml:"threshold"`
}

type InputConfig struct {
	Mode       interact.Mode `yaml:"mode"`
	Fallback   bool          `yaml:"fallback"`
	HandScript string        `yaml:"hand_script"`
	Depth      float64       `yaml:"depth"`
}

type AudioConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Idle      float64 `yaml:"idle"`
	Repel     float64 `yaml:"repel"`
	Attract   float64 `yaml:"attract"`
	Volume    float64 `yaml:"volume"`
	BaseFreq  float64 `yaml:"base_freq"`
	ChimeFreq float64 `yaml:"chime_freq"`
}

type RenderConfig struct {
	FPS    int `yaml:"fps"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type StreamConfig struct {
	Addr     string `yaml:"addr"`
	Every    int    `yaml:"every"`
	MaxConns int    `yaml:"max_conns"`
}

func DefaultConfig() *Config {
	return &Config{
		Particles: ParticleConfig{Count: DefaultParticles, Backend: "cpu"},
		Shape:     shape.Sphere,
		Camera: CameraConfig{
			FOV:      DefaultFOV,
			Distance: DefaultDistance,
			Aspect:   DefaultAspect,
			Near:     0.1,
			Far:      1000,
		},
		Morph: MorphConfig{
			Alpha:         DefaultAlpha,
			AttractRadius: 40,
			RepelRadius:   25,
			Jitter:        2.5,
			DriftAmp:      0.5,
			RepelGain:     2,
		},
		Gesture: GestureConfig{Capacity: DefaultCapacity, Threshold: DefaultThreshold},
		Input:   InputConfig{Mode: interact.Pointer, Fallback: true, Depth: interact.DefaultDepth},
		Audio: AudioConfig{
			Enabled:   false,
			Idle:      IntensityIdle,
			Repel:     IntensityRepel,
			Attract:   IntensityAttract,
			Volume:    0.3,
			BaseFreq:  110,
			ChimeFreq: 880,
		},
		Render: RenderConfig{FPS: DefaultFPS, Width: 1280, Height: 720},
		Stream: StreamConfig{Addr: DefaultAddr, Every: 2, MaxConns: 16},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Particles.Count <= 0:
		return fmt.Errorf("particles.count must be positive, got %d: %w", c.Particles.Count, ErrInvalid)
	case !c.Shape.Valid():
		return fmt.Errorf("shape %d out of range: %w", int(c.Shape), ErrInvalid)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return fmt.Errorf("camera.fov must be in (0, 180), got %f: %w", c.Camera.FOV, ErrInvalid)
	case c.Camera.Distance <= 0:
		return fmt.Errorf("camera.distance must be positive, got %f: %w", c.Camera.Distance, ErrInvalid)
	case c.Camera.Aspect <= 0:
		return fmt.Errorf("camera.aspect must be positive, got %f: %w", c.Camera.Aspect, ErrInvalid)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("camera near/far must satisfy 0 < near < far: %w", ErrInvalid)
	case c.Morph.Alpha <= 0 || c.Morph.Alpha > 1:
		return fmt.Errorf("morph.alpha must be in (0, 1], got %f: %w", c.Morph.Alpha, ErrInvalid)
	case c.Morph.AttractRadius < 0 || c.Morph.RepelRadius <= 0:
		return fmt.Errorf("morph radii must be positive: %w", ErrInvalid)
	case c.Gesture.Capacity < 1:
		return fmt.Errorf("gesture.capacity must be at least 1, got %d: %w", c.Gesture.Capacity, ErrInvalid)
	case c.Gesture.Threshold <= 0 || c.Gesture.Threshold > 1:
		return fmt.Errorf("gesture.threshold must be in (0, 1], got %f: %w", c.Gesture.Threshold, ErrInvalid)
	case c.Render.FPS <= 0:
		return fmt.Errorf("render.fps must be positive, got %d: %w", c.Render.FPS, ErrInvalid)
	}
	for name, v := range map[string]float64{"idle": c.Audio.Idle, "repel": c.Audio.Repel, "attract": c.Audio.Attract} {
		if v < 0 || v > 1 {
			return fmt.Errorf("audio.%s must be in [0, 1], got %f: %w", name, v, ErrInvalid)
		}
	}
	return nil
}

// Intensity returns the audio intensity for an interaction state.
func (c *Config) Intensity(active, attracting bool) float64 {
	switch {
	case !active:
		return c.Audio.Idle
	case attracting:
		return c.Audio.Attract
	default:
		return c.Audio.Repel
	}
}

// MorphParams lists the names accepted by SetParam, matching the yaml keys.
var MorphParams = []string{"alpha", "attract_radius", "repel_radius", "jitter", "drift", "repel_gain"}

func (m *MorphConfig) field(name string) (*float64, error) {
	switch name {
	case "alpha":
		return &m.Alpha, nil
	case "attract_radius":
		return &m.AttractRadius, nil
	case "repel_radius":
		return &m.RepelRadius, nil
	case "jitter":
		return &m.Jitter, nil
	case "drift":
		return &m.DriftAmp, nil
	case "repel_gain":
		return &m.RepelGain, nil
	}
	return nil, fmt.Errorf("unknown morph parameter %q (available: %v): %w", name, MorphParams, ErrInvalid)
}

func (m *MorphConfig) SetParam(name string, v float64) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (m *MorphConfig) Param(name string) (float64, error) {
	f, err := m.field(name)
	if err != nil {
		return 0, err
	}
	return *f, nil
}
