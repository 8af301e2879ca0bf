package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/core/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSummarizeDivergence(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i + 1)
	}
	s, err := SummarizeDivergence(values)
	require.NoError(t, err)
	assert.Equal(t, 20, s.Count)
	assert.InDelta(t, 10.5, s.Mean, 1e-12)
	assert.InDelta(t, 10.5, s.Median, 1e-12)
	assert.Equal(t, 19.0, s.P95)
	assert.Equal(t, 20.0, s.Max)
	assert.Contains(t, s.String(), "20 groups")
}

func TestSummarizeDivergenceEdgeCases(t *testing.T) {
	s, err := SummarizeDivergence(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, "Divergence: no groups validated", s.String())

	s, err = SummarizeDivergence([]float64{0.25})
	require.NoError(t, err)
	assert.Equal(t, 0.25, s.P95)
	assert.Equal(t, 0.25, s.Median)
}

func TestPlotGroup(t *testing.T) {
	d := &distribution.Distribution{
		ID:               "plot",
		Header:           []string{"tokens", "vertices", "runtime"},
		Mean:             []float64{50, 4, 20},
		Stdev:            []float64{5, 0, 3},
		Covariance:       mat.NewSymDense(3, []float64{25, 0, 6, 0, 0, 0, 6, 0, 9}),
		DependentColumns: []int{0, 2},
		IntegerColumns:   []int{0, 1},
	}
	x, err := synth.NewSeeded(3, 0).Synthesize(d, 500)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plot.png")
	require.NoError(t, PlotGroup(path, d, x))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(content), 8)
	assert.Equal(t, "\x89PNG", string(content[:4]))

	assert.Error(t, PlotGroup(path, d, mat.NewDense(2, 2, nil)))
}
