package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCounters(t *testing.T) {
	m := New()
	m.GroupDone("simulate", "succeeded")
	m.GroupDone("simulate", "succeeded")
	m.GroupDone("simulate", "skipped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.groups.WithLabelValues("simulate", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.groups.WithLabelValues("simulate", "skipped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.groups.WithLabelValues("validate", "failed")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveDivergence(0.02)
	m.AddSyntheticRows(1000)
	m.ObserveStage("validate", 0.5)

	path := filepath.Join(t.TempDir(), "tracegen.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.True(t, strings.Contains(text, "tracegen_divergence_count 1"), text)
	assert.True(t, strings.Contains(text, "tracegen_synthetic_rows_total 1000"), text)
	assert.True(t, strings.Contains(text, `tracegen_stage_duration_seconds_count{stage="validate"} 1`), text)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GroupDone("extract", "failed")
		m.ObserveDivergence(1)
		m.AddSyntheticRows(1)
		m.ObserveStage("extract", 1)
	})
	assert.NoError(t, m.WriteTextfile("ignored"))
	assert.Nil(t, m.Registry())
}
