// Package distribution computes and describes the per-group empirical
// distribution that synthetic traces are drawn from.
//
// A Distribution holds the mean, population standard deviation and sample
// covariance of a group's numeric records, together with the partition of
// columns into dependent (jointly modeled through the covariance) and
// independent (modeled by mean and standard deviation alone) columns.
//
// The dependent set is chosen greedily in column order: a correlated column
// is kept only if the covariance submatrix over the columns kept so far plus
// the candidate still has full rank. When several maximal subsets exist the
// one found depends on column order.
package distribution
