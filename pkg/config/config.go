// Package config loads the optional reflow.yaml engine configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/reflow/pkg/geometry"
	"github.com/go-drift/reflow/pkg/reactive"
)

// FileName is the configuration file LoadOptional looks for.
const FileName = "reflow.yaml"

// SchemaVersion is the configuration schema this package reads. Files with a
// different major version are rejected.
const SchemaVersion = "v1.0.0"

// Config represents reflow.yaml.
type Config struct {
	Version string        `yaml:"version,omitempty"`
	Engine  EngineConfig  `yaml:"engine"`
	Surface SurfaceConfig `yaml:"surface"`
	Log     LogConfig     `yaml:"log"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

// EngineConfig contains reactive graph settings.
type EngineConfig struct {
	// CrossThread is "defer" or "drop".
	CrossThread string `yaml:"cross_thread,omitempty"`
	// MaxFlushPasses bounds one reactive flush. Zero disables the bound.
	MaxFlushPasses int `yaml:"max_flush_passes,omitempty"`
}

// SurfaceConfig is the size parentless layout roots are laid out at.
type SurfaceConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Verbosity int `yaml:"verbosity,omitempty"`
}

// JobsConfig contains job queue settings.
type JobsConfig struct {
	// Capacity is the number of jobs the queue reserves room for.
	Capacity int `yaml:"capacity,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Version: SchemaVersion,
		Engine: EngineConfig{
			CrossThread:    reactive.PolicyDefer.String(),
			MaxFlushPasses: reactive.DefaultMaxFlushPasses,
		},
		Surface: SurfaceConfig{Width: 800, Height: 600},
		Jobs:    JobsConfig{Capacity: 32},
	}
}

// Load reads and validates the file at path. Fields the file omits keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOptional reads reflow.yaml from dir if present and returns the
// defaults otherwise.
func LoadOptional(dir string) (Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	if v := c.schemaVersion(); !semver.IsValid(v) {
		err = multierr.Append(err, fmt.Errorf("version %q is not a semantic version", c.Version))
	} else if semver.Major(v) != semver.Major(SchemaVersion) {
		err = multierr.Append(err, fmt.Errorf("version %s is not supported (want %s.x)", c.Version, semver.Major(SchemaVersion)))
	}
	if _, perr := reactive.ParsePolicy(c.Engine.CrossThread); perr != nil {
		err = multierr.Append(err, fmt.Errorf("engine.cross_thread: %w", perr))
	}
	if c.Engine.MaxFlushPasses < 0 {
		err = multierr.Append(err, fmt.Errorf("engine.max_flush_passes must not be negative (got %d)", c.Engine.MaxFlushPasses))
	}
	if !validDimension(c.Surface.Width) || !validDimension(c.Surface.Height) {
		err = multierr.Append(err, fmt.Errorf("surface must have a positive finite size (got %gx%g)", c.Surface.Width, c.Surface.Height))
	}
	if c.Log.Verbosity < 0 {
		err = multierr.Append(err, fmt.Errorf("log.verbosity must not be negative (got %d)", c.Log.Verbosity))
	}
	if c.Jobs.Capacity < 0 {
		err = multierr.Append(err, fmt.Errorf("jobs.capacity must not be negative (got %d)", c.Jobs.Capacity))
	}
	return err
}

// schemaVersion returns Version in canonical "v" form. An empty version
// means the current schema.
func (c Config) schemaVersion() string {
	v := strings.TrimSpace(c.Version)
	if v == "" {
		return SchemaVersion
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Policy returns the parsed cross-thread policy. Call Validate first.
func (c Config) Policy() reactive.Policy {
	p, _ := reactive.ParsePolicy(c.Engine.CrossThread)
	return p
}

// SurfaceConstraints returns tight constraints for the configured surface.
func (c Config) SurfaceConstraints() geometry.Constraints {
	return geometry.Tight(geometry.Size{Width: c.Surface.Width, Height: c.Surface.Height})
}

func validDimension(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
