package config

import (
	"sort"

	"github.com/san-kum/morphcloud/internal/shape"
)

// Presets are named overlays applied on top of DefaultConfig.
var Presets = map[string]func(*Config){
	"calm": func(c *Config) {
		c.Morph.Alpha = 0.02
		c.Morph.DriftAmp = 0.3
		c.Shape = shape.Sphere
	},
	"vortex": func(c *Config) {
		c.Morph.AttractRadius = 60
		c.Morph.Jitter = 4
		c.Morph.RepelRadius = 35
		c.Shape = shape.Saturn
	},
	"dense": func(c *Config) {
		c.Particles.Count = 40000
		c.Morph.DriftAmp = 0.2
		c.Shape = shape.Heart
	},
	"lite": func(c *Config) {
		c.Particles.Count = 3000
		c.Render.FPS = 30
	},
	"bloom": func(c *Config) {
		c.Shape = shape.Flower
		c.Morph.Alpha = 0.08
		c.Morph.DriftAmp = 0.8
	},
}

func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
