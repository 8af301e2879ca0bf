package metrics

import (
	"math"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GaussianKL は2つの多変量正規分布 P=N(μp,Σp), Q=N(μq,Σq) の
// Kullback–Leibler ダイバージェンス KL(P‖Q) を閉形式で計算する
//
//	KL(P‖Q) = ½ [ tr(Σq⁻¹Σp) + (μq−μp)ᵗ Σq⁻¹ (μq−μp) − k + ln(det Σq / det Σp) ]
//
// 戻り値:
//   - float64: 非負のダイバージェンス (P=Q なら 0)
//   - error: Σq または Σp が正定値でない場合は SingularMatrixError
func GaussianKL(muP []float64, sigmaP mat.Symmetric, muQ []float64, sigmaQ mat.Symmetric) (float64, error) {
	const op = "GaussianKL"
	k := len(muP)
	if len(muQ) != k {
		return 0, errors.NewDimensionError(op, k, len(muQ), 1)
	}
	if n := symDim(sigmaP); n != k {
		return 0, errors.NewDimensionError(op, k, n, 1)
	}
	if n := symDim(sigmaQ); n != k {
		return 0, errors.NewDimensionError(op, k, n, 1)
	}
	if k == 0 {
		return 0, nil
	}

	var cholQ, cholP mat.Cholesky
	if ok := cholQ.Factorize(sigmaQ); !ok {
		return 0, errors.NewSingularMatrixError(op, k)
	}
	if ok := cholP.Factorize(sigmaP); !ok {
		return 0, errors.NewSingularMatrixError(op+" (reference)", k)
	}

	// tr(Σq⁻¹Σp)
	var sol mat.Dense
	if err := cholQ.SolveTo(&sol, sigmaP); err != nil && !isCondition(err) {
		return 0, errors.Wrap(err, "solve Σq⁻¹Σp")
	}
	trace := mat.Trace(&sol)

	// (μq−μp)ᵗ Σq⁻¹ (μq−μp)
	diff := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		diff.SetVec(i, muQ[i]-muP[i])
	}
	var y mat.VecDense
	if err := cholQ.SolveVecTo(&y, diff); err != nil && !isCondition(err) {
		return 0, errors.Wrap(err, "solve Σq⁻¹(μq−μp)")
	}
	quad := mat.Dot(diff, &y)

	kl := 0.5 * (trace + quad - float64(k) + cholQ.LogDet() - cholP.LogDet())
	if err := errors.CheckScalar(op, kl); err != nil {
		return 0, err
	}
	// 丸め誤差による微小な負値は 0 に切り上げる
	return math.Max(0, kl), nil
}

func symDim(s mat.Symmetric) int {
	if s == nil {
		return 0
	}
	if d, ok := s.(*mat.SymDense); ok && d.IsEmpty() {
		return 0
	}
	return s.SymmetricDim()
}

func isCondition(err error) bool {
	var cond mat.Condition
	return errors.As(err, &cond)
}

// Validator scores synthetic datasets against their reference distribution.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Score recomputes the moments of synthetic with the reference's integer
// typing and returns KL(reference‖synthetic) restricted to the reference's
// dependent columns. Independent columns are not scored.
func (v *Validator) Score(ref *distribution.Distribution, synthetic mat.Matrix) (float64, error) {
	_, c := synthetic.Dims()
	if c != ref.NumColumns() {
		return 0, errors.NewDimensionError("Validator.Score", ref.NumColumns(), c, 1)
	}
	m, err := distribution.Compute(synthetic, ref.IntegerColumns)
	if err != nil {
		return 0, err
	}

	muP, sigmaP := ref.Restricted()
	muQ := distribution.RestrictVec(m.Mean, ref.DependentColumns)
	sigmaQ := distribution.Restrict(m.Covariance, ref.DependentColumns)
	return GaussianKL(muP, sigmaP, muQ, sigmaQ)
}
