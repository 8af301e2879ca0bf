package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// 平均・共分散・合成値にNaNやInfが混入したことを示します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("tracegen: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values})
}

// CheckNumericalStability returns an error if values contain NaN or Inf.
func CheckNumericalStability(operation string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values)
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix for NaN or Inf.
func CheckMatrix(operation string, matrix interface {
	At(int, int) float64
	Dims() (int, int)
}) error {
	rows, cols := matrix.Dims()
	var unstableValues []float64

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				unstableValues = append(unstableValues, v)
				if len(unstableValues) >= 10 {
					break
				}
			}
		}
		if len(unstableValues) > 0 {
			break
		}
	}

	if len(unstableValues) > 0 {
		return NewNumericalInstabilityError(operation, unstableValues)
	}
	return nil
}

// CheckSymmetric reports a ValueError when m differs from its transpose by
// more than tol in any entry.
func CheckSymmetric(operation string, m interface {
	At(int, int) float64
	Dims() (int, int)
}, tol float64) error {
	r, c := m.Dims()
	if r != c {
		return NewDimensionError(operation, r, c, 1)
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.Abs(a-b) > tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
				return NewValueError(operation, fmt.Sprintf("matrix is not symmetric at (%d,%d): %g != %g", i, j, a, b))
			}
		}
	}
	return nil
}

// CheckScalar checks a single scalar value for NaN or Inf.
func CheckScalar(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value})
	}
	return nil
}
