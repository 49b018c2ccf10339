package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/go-drift/reflow/pkg/geometry"
	"github.com/go-drift/reflow/pkg/reactive"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, reactive.PolicyDefer, cfg.Policy())
	assert.Equal(t, geometry.Tight(geometry.Size{Width: 800, Height: 600}), cfg.SurfaceConstraints())
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOptionalOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`version: "1.2"
engine:
  cross_thread: drop
surface:
  width: 320
  height: 240
log:
  verbosity: 2
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), data, 0o644))

	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, reactive.PolicyDrop, cfg.Policy())
	assert.Equal(t, reactive.DefaultMaxFlushPasses, cfg.Engine.MaxFlushPasses, "omitted fields keep defaults")
	assert.Equal(t, 320.0, cfg.Surface.Width)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, 32, cfg.Jobs.Capacity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("engine: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errs   int
	}{
		{"empty version", func(c *Config) { c.Version = "" }, 0},
		{"bare version", func(c *Config) { c.Version = "1.4.2" }, 0},
		{"bad version", func(c *Config) { c.Version = "one" }, 1},
		{"future major", func(c *Config) { c.Version = "v2.0.0" }, 1},
		{"unknown policy", func(c *Config) { c.Engine.CrossThread = "block" }, 1},
		{"negative passes", func(c *Config) { c.Engine.MaxFlushPasses = -1 }, 1},
		{"zero surface", func(c *Config) { c.Surface = SurfaceConfig{} }, 1},
		{"negative verbosity and capacity", func(c *Config) {
			c.Log.Verbosity = -1
			c.Jobs.Capacity = -5
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errs == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Len(t, multierr.Errors(err), tt.errs)
		})
	}
}
