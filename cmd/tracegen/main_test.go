package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeTraceInput(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("c0,key,tag,x,y\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "0,g1,hash1,%d,%d\n", 10+i%7, 3*(i%5)+i%3)
		fmt.Fprintf(&b, "0,g2,hash2,%d,%d\n", 50+i%11, 20+(i*7)%9)
	}
	fmt.Fprintf(&b, "0,g3,hash3,1,1\n")
	path := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tracegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  group_key: 1
  tag_column: 2
  columns: [3, 4]
  int_columns: [3, 4]
log:
  level: error
`), 0o644))
	return path
}

func TestCLIStages(t *testing.T) {
	for _, backend := range []string{"array", "table", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := writeConfig(t, dir)
			input := writeTraceInput(t, dir)
			distDir := filepath.Join(dir, "dist")
			dataDir := filepath.Join(dir, "datagen")
			metricsFile := filepath.Join(dir, "tracegen.prom")

			out, err := run(t, "--config", cfg, "--store", backend, "extract",
				input, filepath.Join(dir, "extract"), distDir, "10", "5")
			require.NoError(t, err)
			assert.Contains(t, out, "Successfully extracted 2 of 3 groups (1 skipped, 0 failed).")

			out, err = run(t, "--config", cfg, "--store", backend, "--seed", "3", "simulate",
				distDir, dataDir, filepath.Join(dir, "all.csv"), "2000")
			require.NoError(t, err)
			assert.Contains(t, out, "Successfully simulated 2 of 2 groups")

			out, err = run(t, "--config", cfg, "--store", backend, "--metrics-file", metricsFile,
				"validate", distDir, dataDir)
			require.NoError(t, err)
			assert.Contains(t, out, "Group hash1: ")
			assert.Contains(t, out, "Group hash2: ")
			assert.Contains(t, out, "Successfully validated 2 of 2 groups")

			_, err = os.Stat(metricsFile)
			assert.NoError(t, err)
		})
	}
}

func TestCLIExtractUsesConfiguredLimits(t *testing.T) {
	tests := []struct {
		name   string
		limits string
		args   []string
		want   string
	}{
		{
			name:   "support from config",
			limits: "  max_groups: 0\n  support_threshold: 100\n",
			want:   "Successfully extracted 0 of 3 groups (3 skipped, 0 failed).",
		},
		{
			name:   "cap from config",
			limits: "  max_groups: 1\n  support_threshold: 5\n",
			want:   "Successfully extracted 1 of 1 groups (0 skipped, 0 failed).",
		},
		{
			name:   "arguments win over config",
			limits: "  max_groups: 1\n  support_threshold: 100\n",
			args:   []string{"0", "5"},
			want:   "Successfully extracted 2 of 3 groups (1 skipped, 0 failed).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := filepath.Join(dir, "tracegen.yaml")
			require.NoError(t, os.WriteFile(cfg, []byte(
				"input:\n  group_key: 1\n  tag_column: 2\n  columns: [3, 4]\n  int_columns: [3, 4]\n"+tt.limits+"log:\n  level: error\n",
			), 0o644))

			args := []string{"--config", cfg, "extract",
				writeTraceInput(t, dir), filepath.Join(dir, "extract"), filepath.Join(dir, "dist")}
			out, err := run(t, append(args, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCLIMissingStoreIsFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--config", writeConfig(t, dir), "validate", filepath.Join(dir, "nothing"), dir)
	var missing *errors.MissingArtifactError
	assert.True(t, errors.As(err, &missing), "got %v", err)
}

func TestCLIArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing arguments", args: []string{"--config", cfg, "simulate", dir}},
		{name: "bad rows", args: []string{"--config", cfg, "simulate", dir, dir, "all.csv", "zero"}},
		{name: "bad support", args: []string{"--config", cfg, "extract", "in", dir, dir, "10", "1"}},
		{name: "extract without store", args: []string{"--config", cfg, "extract", "in", dir}},
		{name: "bad backend", args: []string{"--config", cfg, "--store", "parquet", "validate", dir, dir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
