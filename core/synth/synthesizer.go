// Package synth draws synthetic records from a group's Distribution.
//
// Dependent columns are sampled jointly as mean + L·Z where L is the
// Cholesky factor of their covariance and Z a standard normal matrix;
// independent columns are sampled one by one as mean + stdev·z.
package synth

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Synthesizer generates synthetic rows. It is not safe for concurrent use;
// parallel workers each own a Synthesizer with its own stream.
type Synthesizer struct {
	rng *rand.Rand
}

// New creates a Synthesizer drawing from rng.
func New(rng *rand.Rand) *Synthesizer {
	return &Synthesizer{rng: rng}
}

// NewSeeded creates a Synthesizer on the PCG stream (seed, stream).
// Different stream values give statistically independent sequences for the
// same seed.
func NewSeeded(seed, stream uint64) *Synthesizer {
	return New(rand.New(rand.NewPCG(seed, stream)))
}

// Dependent draws n samples of the columns cols jointly from N(mean, cov)
// restricted to cols. The result is len(cols)×n.
//
// 戻り値:
//   - *mat.Dense: 依存列ブロック (len(cols) × n)
//   - error: 制限した共分散が正定値でない場合は FactorizationError
func (s *Synthesizer) Dependent(mean []float64, cov mat.Symmetric, cols []int, n int) (*mat.Dense, error) {
	if len(cols) == 0 {
		return &mat.Dense{}, nil
	}
	mu := distribution.RestrictVec(mean, cols)
	sub := distribution.Restrict(cov, cols)

	var chol mat.Cholesky
	if ok := chol.Factorize(sub); !ok {
		return nil, errors.NewFactorizationError("Synthesizer.Dependent", cols)
	}
	var l mat.TriDense
	chol.LTo(&l)

	z := Gaussian(s.rng, len(cols), n)
	var out mat.Dense
	out.Mul(&l, z)
	for i := range cols {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += mu[i]
		}
	}
	return &out, nil
}

// Independent draws n samples of each column in cols as
// mean[c] + stdev[c]·z. The result is len(cols)×n.
func (s *Synthesizer) Independent(mean, stdev []float64, cols []int, n int) *mat.Dense {
	if len(cols) == 0 {
		return &mat.Dense{}
	}
	z := Gaussian(s.rng, len(cols), n)
	for i, c := range cols {
		row := z.RawRowView(i)
		for j, v := range row {
			row[j] = mean[c] + stdev[c]*v
		}
	}
	return z
}

// Synthesize draws n rows for d. The result is n×F in header order, with
// integer columns rounded up and every value made non-negative.
func (s *Synthesizer) Synthesize(d *distribution.Distribution, n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("rows", "must be positive", n)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	dep, err := s.Dependent(d.Mean, d.Covariance, d.DependentColumns, n)
	if err != nil {
		return nil, err
	}
	indCols := d.IndependentColumns()
	ind := s.Independent(d.Mean, d.Stdev, indCols, n)

	return Assemble(d.NumColumns(), Blocks{
		DependentColumns:   d.DependentColumns,
		Dependent:          dep,
		IndependentColumns: indCols,
		Independent:        ind,
	}, d.IntegerColumns)
}

// Blocks are the column-major sample blocks produced for one group.
type Blocks struct {
	DependentColumns   []int
	Dependent          *mat.Dense // len(DependentColumns) × n
	IndependentColumns []int
	Independent        *mat.Dense // len(IndependentColumns) × n
}

// Assemble interleaves the dependent and independent blocks into an n×f
// matrix in header order. Integer columns are rounded up, then every value
// is replaced by its absolute value.
//
// It fails with a DimensionError when the blocks disagree on the number of
// rows or on their column lists, and with an UnclassifiedColumnError when a
// column belongs to neither block.
func Assemble(f int, b Blocks, intCols []int) (*mat.Dense, error) {
	const op = "synth.Assemble"

	depRows, depN := dims(b.Dependent)
	indRows, indN := dims(b.Independent)
	if depRows != len(b.DependentColumns) {
		return nil, errors.NewDimensionError(op, len(b.DependentColumns), depRows, 1)
	}
	if indRows != len(b.IndependentColumns) {
		return nil, errors.NewDimensionError(op, len(b.IndependentColumns), indRows, 1)
	}
	if depRows > 0 && indRows > 0 && depN != indN {
		return nil, errors.NewDimensionError(op, depN, indN, 0)
	}
	n := max(depN, indN)
	if n == 0 {
		return nil, errors.NewValueError(op, "no samples to assemble")
	}

	type source struct {
		block *mat.Dense
		row   int
	}
	sources := make([]*source, f)
	for i, c := range b.DependentColumns {
		if c < 0 || c >= f {
			return nil, errors.NewUnclassifiedColumnError(op, c)
		}
		sources[c] = &source{block: b.Dependent, row: i}
	}
	for i, c := range b.IndependentColumns {
		if c < 0 || c >= f {
			return nil, errors.NewUnclassifiedColumnError(op, c)
		}
		if sources[c] != nil {
			return nil, errors.NewValidationError("independent_columns", "column is also dependent", c)
		}
		sources[c] = &source{block: b.Independent, row: i}
	}
	isInt := make([]bool, f)
	for _, c := range intCols {
		if c >= 0 && c < f {
			isInt[c] = true
		}
	}

	out := mat.NewDense(n, f, nil)
	for c := 0; c < f; c++ {
		src := sources[c]
		if src == nil {
			return nil, errors.NewUnclassifiedColumnError(op, c)
		}
		for r := 0; r < n; r++ {
			v := src.block.At(src.row, r)
			if isInt[c] {
				v = math.Ceil(v)
			}
			out.Set(r, c, math.Abs(v))
		}
	}
	if err := errors.CheckMatrix(op, out); err != nil {
		return nil, err
	}
	return out, nil
}

func dims(m *mat.Dense) (int, int) {
	if m == nil || m.IsEmpty() {
		return 0, 0
	}
	return m.Dims()
}
