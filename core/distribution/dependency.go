package distribution

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Partition splits the columns of cov into independent columns (whose whole
// covariance row is zero) and candidates for the dependent block.
func Partition(cov mat.Symmetric) (independent, candidates []int) {
	n := cov.SymmetricDim()
	for i := 0; i < n; i++ {
		zero := true
		for j := 0; j < n; j++ {
			if cov.At(i, j) != 0 {
				zero = false
				break
			}
		}
		if zero {
			independent = append(independent, i)
		} else {
			candidates = append(candidates, i)
		}
	}
	return independent, candidates
}

// DependentColumns selects a maximal linearly independent subset of the
// correlated columns of cov. Candidates are visited in index order and a
// candidate is kept only if the covariance submatrix over the kept columns
// plus the candidate has full rank; otherwise it is a linear combination of
// columns already kept and is dropped.
func DependentColumns(cov mat.Symmetric) []int {
	dep, _ := selectDependent(cov)
	return dep
}

// selectDependent also returns the correlated columns that were dropped.
func selectDependent(cov mat.Symmetric) (dependent, dropped []int) {
	_, candidates := Partition(cov)
	dependent = make([]int, 0, len(candidates))
	for _, c := range candidates {
		tentative := append(append([]int(nil), dependent...), c)
		if Rank(Restrict(cov, tentative)) == len(tentative) {
			dependent = tentative
		} else {
			dropped = append(dropped, c)
		}
	}
	return dependent, dropped
}

// IndependentColumns returns the columns of 0..f-1 not in dependent.
func IndependentColumns(f int, dependent []int) []int {
	in := make(map[int]bool, len(dependent))
	for _, c := range dependent {
		in[c] = true
	}
	ind := make([]int, 0, f-len(dependent))
	for i := 0; i < f; i++ {
		if !in[i] {
			ind = append(ind, i)
		}
	}
	return ind
}

// Rank returns the numerical rank of m: the number of singular values
// above σmax·max(r,c)·ε, the same tolerance numpy's matrix_rank uses.
func Rank(m mat.Matrix) int {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return 0
	}
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDNone); !ok {
		return 0
	}
	values := svd.Values(nil)
	smax := 0.0
	for _, s := range values {
		smax = math.Max(smax, s)
	}
	tol := smax * float64(max(r, c)) * eps
	rank := 0
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	return rank
}

const eps = 2.220446049250313e-16

// Restrict returns the covariance submatrix over cols, in the order given.
func Restrict(cov mat.Symmetric, cols []int) *mat.SymDense {
	if len(cols) == 0 {
		return &mat.SymDense{}
	}
	sub := mat.NewSymDense(len(cols), nil)
	for i, ci := range cols {
		for j := i; j < len(cols); j++ {
			sub.SetSym(i, j, cov.At(ci, cols[j]))
		}
	}
	return sub
}

// RestrictVec returns v[cols].
func RestrictVec(v []float64, cols []int) []float64 {
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = v[c]
	}
	return out
}
