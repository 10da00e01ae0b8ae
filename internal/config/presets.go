package config

import "sort"

type Preset struct {
	Description string
	Apply       func(*Config)
}

var Presets = map[string]Preset{
	"quick": {
		Description: "small network on 500 synthetic rows, 20 epochs",
		Apply: func(c *Config) {
			c.Dataset.Synthetic = 500
			c.Model.HiddenSize = 32
			c.Model.HiddenLayers = 2
			c.Training.Epochs = 20
			c.Training.CheckpointEvery = 5
			c.Log.Every = 5
		},
	},
	"standard": {
		Description: "default 128x3 tanh network, 100 epochs",
		Apply:       func(c *Config) {},
	},
	"data_only": {
		Description: "physics weight 0: supervised regression, residual still recorded",
		Apply: func(c *Config) {
			c.Training.PhysicsWeight = 0
		},
	},
	"physics_heavy": {
		Description: "physics weight 10 with a longer schedule",
		Apply: func(c *Config) {
			c.Training.PhysicsWeight = 10
			c.Training.Epochs = 200
		},
	},
	"transonic": {
		Description: "Re=5e6, M=0.7",
		Apply: func(c *Config) {
			c.Condition.Reynolds = 5e6
			c.Condition.Mach = 0.7
		},
	},
	"low_re": {
		Description: "Re=1e3 viscous regime, sine activation",
		Apply: func(c *Config) {
			c.Condition.Reynolds = 1e3
			c.Condition.Mach = 0.1
			c.Model.Activation = "sine"
		},
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg
}

// ApplyPreset applies the named preset to cfg and reports whether it exists.
func ApplyPreset(cfg *Config, name string) bool {
	p, ok := Presets[name]
	if ok {
		p.Apply(cfg)
	}
	return ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
