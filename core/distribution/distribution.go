package distribution

import (
	"fmt"
	"slices"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Distribution is the statistical summary of one group. It is written once
// to a store and only read afterwards.
type Distribution struct {
	// ID はグループ識別子 (ハッシュタグ)
	ID string

	// Header は列名 (長さ F)
	Header []string

	Mean  []float64
	Stdev []float64

	// Covariance は F×F の標本共分散行列
	Covariance *mat.SymDense

	// DependentColumns は共分散で同時にモデル化する列 (昇順)
	DependentColumns []int

	// IntegerColumns は合成値を整数に丸める列 (出力列番号)
	IntegerColumns []int
}

// Build computes the distribution of the records in x and selects its
// dependent columns. Correlated columns dropped as linear combinations are
// reported through errors.Warn.
func Build(id string, header []string, x mat.Matrix, intColumns []int) (*Distribution, error) {
	_, c := x.Dims()
	if len(header) != c {
		return nil, errors.NewDimensionError("distribution.Build", c, len(header), 1)
	}
	m, err := Compute(x, intColumns)
	if err != nil {
		var dataErr *errors.InsufficientDataError
		if errors.As(err, &dataErr) {
			dataErr.GroupID = id
		}
		return nil, err
	}

	dependent, dropped := selectDependent(m.Covariance)
	for _, col := range dropped {
		errors.Warn(&errors.LinearCombinationWarning{GroupID: id, Column: col})
	}

	d := &Distribution{
		ID:               id,
		Header:           append([]string(nil), header...),
		Mean:             m.Mean,
		Stdev:            m.Stdev,
		Covariance:       m.Covariance,
		DependentColumns: dependent,
		IntegerColumns:   sortedCopy(intColumns),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// NumColumns returns F.
func (d *Distribution) NumColumns() int {
	return len(d.Mean)
}

// IndependentColumns returns the complement of DependentColumns.
func (d *Distribution) IndependentColumns() []int {
	return IndependentColumns(d.NumColumns(), d.DependentColumns)
}

// IsInteger reports whether column i is integer valued.
func (d *Distribution) IsInteger(i int) bool {
	return slices.Contains(d.IntegerColumns, i)
}

// Restricted returns the mean and covariance restricted to the dependent
// columns.
func (d *Distribution) Restricted() ([]float64, *mat.SymDense) {
	return RestrictVec(d.Mean, d.DependentColumns), Restrict(d.Covariance, d.DependentColumns)
}

// Validate checks the structural invariants: consistent sizes, a symmetric
// covariance, and dependent and integer columns inside 0..F-1 without
// duplicates. Positive definiteness of the dependent block is checked when
// it is factorized.
func (d *Distribution) Validate() error {
	const op = "Distribution.Validate"
	f := len(d.Mean)
	if f == 0 {
		return errors.NewValueError(op, fmt.Sprintf("group %s has no columns", d.ID))
	}
	if len(d.Stdev) != f {
		return errors.NewDimensionError(op, f, len(d.Stdev), 1)
	}
	if len(d.Header) != f {
		return errors.NewDimensionError(op, f, len(d.Header), 1)
	}
	if d.Covariance == nil {
		return errors.NewValueError(op, "missing covariance")
	}
	if n := d.Covariance.SymmetricDim(); n != f {
		return errors.NewDimensionError(op, f, n, 1)
	}
	if err := errors.CheckNumericalStability(op, d.Mean); err != nil {
		return err
	}
	if err := errors.CheckMatrix(op, d.Covariance); err != nil {
		return err
	}
	if err := checkIndices("dependent_columns", d.DependentColumns, f); err != nil {
		return err
	}
	return checkIndices("integer_columns", d.IntegerColumns, f)
}

func checkIndices(name string, cols []int, f int) error {
	seen := make(map[int]bool, len(cols))
	for _, c := range cols {
		if c < 0 || c >= f {
			return errors.NewValidationError(name, fmt.Sprintf("index outside 0..%d", f-1), c)
		}
		if seen[c] {
			return errors.NewValidationError(name, "duplicate index", c)
		}
		seen[c] = true
	}
	return nil
}

func sortedCopy(cols []int) []int {
	out := append([]int{}, cols...)
	slices.Sort(out)
	return out
}
