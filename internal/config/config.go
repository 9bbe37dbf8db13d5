// Package config handles tadpole.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "tadpole.toml"

type Config struct {
	GC  GC  `toml:"gc"`
	VM  VM  `toml:"vm"`
	Log Log `toml:"log"`

	// Path is the file the configuration was read from; empty for defaults.
	Path string `toml:"-"`
}

// GC tunes the collector.
type GC struct {
	// Threshold is the live object count that triggers the first
	// collection. Zero disables automatic collection.
	Threshold    int     `toml:"threshold"`
	Growth       float64 `toml:"growth"`
	MinThreshold int     `toml:"min-threshold"`
	Stress       bool    `toml:"stress"`
}

type VM struct {
	StackSize int   `toml:"stack-size"`
	MaxFrames int   `toml:"max-frames"`
	MaxSteps  int64 `toml:"max-steps"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

func Default() Config {
	return Config{
		GC: GC{
			Threshold:    1024,
			Growth:       2.0,
			MinThreshold: 1024,
		},
		VM: VM{
			StackSize: 16384,
			MaxFrames: 256,
		},
	}
}

// Parse decodes data over the defaults, so keys the file omits keep their
// default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads the configuration at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Load reads tadpole.toml from dir.
func Load(dir string) (Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// FindAndLoad walks up from startDir to find a tadpole.toml file. When none
// exists the defaults are returned.
func FindAndLoad(startDir string) (Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return Config{}, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate reports the first out-of-range setting by its key.
func (c Config) Validate() error {
	switch {
	case c.GC.Threshold < 0:
		return fmt.Errorf("gc.threshold must not be negative, got %d", c.GC.Threshold)
	case c.GC.MinThreshold < 0:
		return fmt.Errorf("gc.min-threshold must not be negative, got %d", c.GC.MinThreshold)
	case c.GC.Growth < 1:
		return fmt.Errorf("gc.growth must be at least 1, got %g", c.GC.Growth)
	case c.VM.StackSize <= 0:
		return fmt.Errorf("vm.stack-size must be positive, got %d", c.VM.StackSize)
	case c.VM.MaxFrames <= 0:
		return fmt.Errorf("vm.max-frames must be positive, got %d", c.VM.MaxFrames)
	case c.VM.MaxSteps < 0:
		return fmt.Errorf("vm.max-steps must not be negative, got %d", c.VM.MaxSteps)
	case c.Log.Verbosity < 0:
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}
