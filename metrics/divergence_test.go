package metrics

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/core/synth"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

func randomSPD(rng *rand.Rand, k int) *mat.SymDense {
	a := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}
	s := mat.NewSymDense(k, nil)
	s.SymOuterK(1, a)
	for i := 0; i < k; i++ {
		s.SetSym(i, i, s.At(i, i)+0.5)
	}
	return s
}

func randomVec(rng *rand.Rand, k int) []float64 {
	v := make([]float64, k)
	for i := range v {
		v[i] = 10 * rng.NormFloat64()
	}
	return v
}

func TestGaussianKLIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for k := 1; k <= 5; k++ {
		mu := randomVec(rng, k)
		sigma := randomSPD(rng, k)
		kl, err := GaussianKL(mu, sigma, mu, sigma)
		require.NoError(t, err)
		assert.InDelta(t, 0, kl, 1e-9, "k=%d", k)
	}
}

func TestGaussianKLMatchesDistmv(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for trial := 0; trial < 20; trial++ {
		k := 1 + rng.IntN(4)
		muP, muQ := randomVec(rng, k), randomVec(rng, k)
		sigmaP, sigmaQ := randomSPD(rng, k), randomSPD(rng, k)

		got, err := GaussianKL(muP, sigmaP, muQ, sigmaQ)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0)

		p, ok := distmv.NewNormal(muP, sigmaP, nil)
		require.True(t, ok)
		q, ok := distmv.NewNormal(muQ, sigmaQ, nil)
		require.True(t, ok)
		want := distmv.KullbackLeibler{}.DistNormal(p, q)
		assert.InDelta(t, want, got, 1e-8*math.Max(1, want))
	}
}

func TestGaussianKLKnownValue(t *testing.T) {
	// 1次元: KL(N(0,1)‖N(1,4)) = ln2 + (1+1)/8 - 1/2
	kl, err := GaussianKL(
		[]float64{0}, mat.NewSymDense(1, []float64{1}),
		[]float64{1}, mat.NewSymDense(1, []float64{4}),
	)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2)+2.0/8-0.5, kl, 1e-12)
}

func TestGaussianKLErrors(t *testing.T) {
	spd := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})
	singular := mat.NewSymDense(2, []float64{1, 2, 2, 4})
	mu := []float64{0, 0}

	_, err := GaussianKL(mu, spd, mu, singular)
	assert.True(t, errors.Is(err, errors.ErrSingularMatrix), "got %v", err)

	_, err = GaussianKL(mu, spd, []float64{0}, spd)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	kl, err := GaussianKL(nil, &mat.SymDense{}, nil, &mat.SymDense{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, kl)
}

func TestValidatorScore(t *testing.T) {
	ref := &distribution.Distribution{
		ID:               "g",
		Header:           []string{"a", "b", "c"},
		Mean:             []float64{50, 7, 80},
		Stdev:            []float64{5, 0, 8},
		Covariance:       mat.NewSymDense(3, []float64{25, 0, 12, 0, 0, 0, 12, 0, 64}),
		DependentColumns: []int{0, 2},
		IntegerColumns:   []int{1},
	}

	x, err := synth.NewSeeded(8, 0).Synthesize(ref, 20000)
	require.NoError(t, err)

	v := NewValidator()
	kl, err := v.Score(ref, x)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, kl, 0.0)
	assert.Less(t, kl, 0.01)

	// 平均をずらすとダイバージェンスが増える
	shifted := *ref
	shifted.Mean = []float64{60, 7, 80}
	klShifted, err := v.Score(&shifted, x)
	require.NoError(t, err)
	assert.Greater(t, klShifted, kl)
}

func TestValidatorScoreErrors(t *testing.T) {
	ref := &distribution.Distribution{
		Header:           []string{"a", "b"},
		Mean:             []float64{1, 1},
		Stdev:            []float64{1, 1},
		Covariance:       mat.NewSymDense(2, []float64{1, 0.2, 0.2, 1}),
		DependentColumns: []int{0, 1},
	}
	v := NewValidator()

	_, err := v.Score(ref, mat.NewDense(3, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	constant := mat.NewDense(3, 2, []float64{1, 1, 1, 1, 1, 1})
	_, err = v.Score(ref, constant)
	var singular *errors.SingularMatrixError
	assert.True(t, errors.As(err, &singular), "got %v", err)
}
