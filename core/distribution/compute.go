package distribution

import (
	"math"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Moments are the first and second moments of a record matrix.
type Moments struct {
	// Mean は各列の平均
	Mean []float64

	// Stdev は各列の母標準偏差
	Stdev []float64

	// Covariance は標本共分散行列 (N-1 で正規化)
	Covariance *mat.SymDense
}

// Compute returns the column means, population standard deviations and
// sample covariance of x (rows = records, columns = fields).
//
// Values in intColumns are truncated toward zero before the moments are
// taken, so that producer and validator see integer fields the same way.
// Constant columns get an exactly zero covariance row.
//
// パラメータ:
//   - x: レコード行列 (N × F)
//   - intColumns: 整数列のインデックス (出力列番号)
//
// 戻り値:
//   - *Moments: 平均・標準偏差・共分散
//   - error: N < 2 の場合は InsufficientDataError
func Compute(x mat.Matrix, intColumns []int) (*Moments, error) {
	r, c := x.Dims()
	if c == 0 {
		return nil, errors.NewValueError("distribution.Compute", "matrix has no columns")
	}
	if r < 2 {
		return nil, errors.NewInsufficientDataError("", r, 2)
	}

	isInt := make([]bool, c)
	for _, j := range intColumns {
		if j < 0 || j >= c {
			return nil, errors.NewValidationError("intColumns", "column index out of range", j)
		}
		isInt[j] = true
	}

	data := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := x.At(i, j)
			if isInt[j] {
				v = math.Trunc(v)
			}
			data.Set(i, j, v)
		}
	}
	if err := errors.CheckMatrix("distribution.Compute", data); err != nil {
		return nil, err
	}

	m := &Moments{
		Mean:  make([]float64, c),
		Stdev: make([]float64, c),
	}
	constant := make([]bool, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, data)
		m.Mean[j], m.Stdev[j] = stat.PopMeanStdDev(col, nil)
		constant[j] = isConstant(col)
		if constant[j] {
			m.Mean[j], m.Stdev[j] = col[0], 0
		}
	}

	m.Covariance = mat.NewSymDense(c, nil)
	stat.CovarianceMatrix(m.Covariance, data, nil)
	for j := 0; j < c; j++ {
		if !constant[j] {
			continue
		}
		for k := 0; k < c; k++ {
			m.Covariance.SetSym(j, k, 0)
		}
	}
	return m, nil
}

func isConstant(col []float64) bool {
	for _, v := range col[1:] {
		if v != col[0] {
			return false
		}
	}
	return true
}
