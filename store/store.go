// Package store persists group distributions.
//
// Three interchangeable backends implement Store:
//
//   - ArrayStore: one NumPy .npy file per (group, field) plus a text header
//     per group and a manifest listing group ids.
//   - TableStore: one CSV row per group whose list fields are nested-list
//     literals, plus a one-row header file.
//   - SQLStore: one SQLite row per group.
//
// Every backend round-trips float64 values exactly, so synthesis and
// validation never depend on the encoding.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Store reads and writes distributions keyed by group id. Putting an id
// that already exists supersedes the stored distribution.
type Store interface {
	Put(ctx context.Context, d *distribution.Distribution) error
	Get(ctx context.Context, id string) (*distribution.Distribution, error)
	// IDs lists stored group ids in insertion order.
	IDs(ctx context.Context) ([]string, error)
	Close() error
}

// Kind names a store backend.
type Kind string

const (
	KindArray  Kind = "array"
	KindTable  Kind = "table"
	KindSQLite Kind = "sqlite"
)

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindArray, KindTable, KindSQLite:
		return k, nil
	case "":
		return KindArray, nil
	default:
		return "", errors.NewValidationError("store", "unknown store backend", s)
	}
}

// Open opens the backend kind rooted at path. With create unset the store
// must already exist; a missing store is a MissingArtifactError.
func Open(kind Kind, path string, create bool) (Store, error) {
	switch kind {
	case KindArray:
		return OpenArrayStore(path, create)
	case KindTable:
		return OpenTableStore(path, create)
	case KindSQLite:
		return OpenSQLStore(path, create)
	default:
		return nil, errors.NewValidationError("store", "unknown store backend", string(kind))
	}
}

// checkID rejects ids that cannot be used as a file name.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return errors.NewValidationError("group_id", "not usable as a file name", id)
	}
	return nil
}

// record is the list-of-lists form shared by the table and SQL backends.
type record struct {
	ID               string      `json:"id"`
	Header           []string    `json:"header"`
	Mean             []float64   `json:"mean"`
	Stdev            []float64   `json:"stdev"`
	Covariance       [][]float64 `json:"covariance"`
	DependentColumns []int       `json:"dependent_columns"`
	IntegerColumns   []int       `json:"integer_columns"`
}

func toRecord(d *distribution.Distribution) record {
	f := d.Covariance.SymmetricDim()
	cov := make([][]float64, f)
	for i := range cov {
		cov[i] = make([]float64, f)
		for j := range cov[i] {
			cov[i][j] = d.Covariance.At(i, j)
		}
	}
	return record{
		ID:               d.ID,
		Header:           d.Header,
		Mean:             d.Mean,
		Stdev:            d.Stdev,
		Covariance:       cov,
		DependentColumns: nonNil(d.DependentColumns),
		IntegerColumns:   nonNil(d.IntegerColumns),
	}
}

func (r record) distribution() (*distribution.Distribution, error) {
	f := len(r.Covariance)
	data := make([]float64, 0, f*f)
	for i, row := range r.Covariance {
		if len(row) != f {
			return nil, errors.NewDimensionError(fmt.Sprintf("decode covariance row %d", i), f, len(row), 1)
		}
		data = append(data, row...)
	}
	var cov *mat.SymDense
	if f > 0 {
		cov = mat.NewSymDense(f, data)
	}
	d := &distribution.Distribution{
		ID:               r.ID,
		Header:           r.Header,
		Mean:             r.Mean,
		Stdev:            r.Stdev,
		Covariance:       cov,
		DependentColumns: nonNil(r.DependentColumns),
		IntegerColumns:   nonNil(r.IntegerColumns),
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(err, "decode group %s", r.ID)
	}
	return d, nil
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

// listLiteral encodes v as a nested-list literal such as [[1, 0.5], [0.5, 2]].
func listLiteral(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseList(s string, dst interface{}) error {
	return json.Unmarshal([]byte(strings.TrimSpace(s)), dst)
}
