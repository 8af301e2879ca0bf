package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Input.GroupKey)
	assert.Equal(t, 10, cfg.Input.MaxGroups)
	assert.Equal(t, 5, cfg.Input.SupportThreshold)
	assert.Equal(t, "HT1", cfg.Simulate.TagColumn)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  columns: [1, 2, 3]
  int_columns: [2]
  max_groups: 3
store:
  backend: table
log:
  level: debug
`), 0o644))

	cfg, err := load(path, "", map[string]string{
		"TRACEGEN_MAX_GROUPS": "7",
		"TRACEGEN_SEED":       "99",
		"TRACEGEN_STORE":      "sqlite",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []int{1, 2, 3}, cfg.Input.Columns)
	assert.Equal(t, []int{2}, cfg.Input.IntColumns)
	assert.Equal(t, 7, cfg.Input.MaxGroups, "environment wins over file")
	assert.Equal(t, 5, cfg.Input.SupportThreshold, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, uint64(99), cfg.Simulate.Seed)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("TRACEGEN_WORKERS=4\nTRACEGEN_INT_COLUMNS=3,4\n"), 0o644))
	t.Setenv("TRACEGEN_WORKERS", "2")
	t.Setenv("TRACEGEN_INT_COLUMNS", "")
	os.Unsetenv("TRACEGEN_INT_COLUMNS")

	cfg, err := load("", dotenv, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Simulate.Workers, "process environment wins over .env")
	assert.Equal(t, []int{3, 4}, cfg.Input.IntColumns)
}

func TestLoadErrors(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), "", map[string]string{})
	assert.Error(t, err)

	tests := []struct {
		name    string
		environ map[string]string
	}{
		{name: "integer", environ: map[string]string{"TRACEGEN_WORKERS": "many"}},
		{name: "list element", environ: map[string]string{"TRACEGEN_COLUMNS": "1,x"}},
		{name: "seed", environ: map[string]string{"TRACEGEN_SEED": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load("", "", tt.environ)
			var vErr *errors.ValidationError
			assert.True(t, errors.As(err, &vErr), "got %v", err)
		})
	}
}

func TestLoadEnvironmentKeys(t *testing.T) {
	cfg, err := load("", "", map[string]string{
		"TRACEGEN_GROUP_KEY":         "4",
		"TRACEGEN_TAG_COLUMN":        "5",
		"TRACEGEN_COLUMNS":           "6,7,8",
		"TRACEGEN_INT_COLUMNS":       "7",
		"TRACEGEN_SUPPORT_THRESHOLD": "9",
		"TRACEGEN_CONSOLIDATED_TAG":  "JOB",
		"TRACEGEN_LOG_FORMAT":        "json",
		"TRACEGEN_METRICS_FILE":      "out.prom",
		"TRACEGEN_PLOT_DIR":          "plots",
		"TRACEGEN_LOG_LEVEL":         "",
		"UNRELATED":                  "1",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Input.GroupKey)
	assert.Equal(t, 5, cfg.Input.TagColumn)
	assert.Equal(t, []int{6, 7, 8}, cfg.Input.Columns)
	assert.Equal(t, []int{7}, cfg.Input.IntColumns)
	assert.Equal(t, 9, cfg.Input.SupportThreshold)
	assert.Equal(t, "JOB", cfg.Simulate.TagColumn)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level, "empty variables keep the current value")
	assert.Equal(t, "out.prom", cfg.Report.MetricsFile)
	assert.Equal(t, "plots", cfg.Report.PlotDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no columns", mutate: func(c *Config) { c.Input.Columns = nil }},
		{name: "duplicate columns", mutate: func(c *Config) { c.Input.Columns = []int{1, 1} }},
		{name: "negative column", mutate: func(c *Config) { c.Input.Columns = []int{-1} }},
		{name: "support below two", mutate: func(c *Config) { c.Input.SupportThreshold = 1 }},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "parquet" }},
		{name: "unknown level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		{name: "empty tag", mutate: func(c *Config) { c.Simulate.TagColumn = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var vErr *errors.ValidationError
			assert.True(t, errors.As(err, &vErr), "got %v", err)
		})
	}
}
