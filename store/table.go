package store

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
)

const (
	tableFileName  = "distributions.csv"
	headerFileName = "header.csv"
)

// TableStore keeps every group as one row of distributions.csv:
//
//	id, mean, stdev, covariance, dependent columns, integer columns
//
// with list fields written as nested-list literals. The column names of all
// groups share the single row of header.csv.
type TableStore struct {
	dir string

	mu     sync.Mutex
	header []string
	order  []string
	rows   map[string]record
}

// OpenTableStore opens the table store in dir and loads every row.
func OpenTableStore(dir string, create bool) (*TableStore, error) {
	s := &TableStore{dir: dir, rows: make(map[string]record)}

	rows, err := readCSVFile(filepath.Join(dir, tableFileName))
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && create:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewStoreError("table", "create directory", err)
		}
		return s, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, errors.NewMissingArtifactError("distribution table", filepath.Join(dir, tableFileName))
	default:
		return nil, errors.NewStoreError("table", "read table", err)
	}

	headerRows, err := readCSVFile(filepath.Join(dir, headerFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewStoreError("table", "read header", err)
	}
	if len(headerRows) > 0 {
		s.header = headerRows[0]
	}

	for i, row := range rows {
		r, err := decodeRow(row)
		if err != nil {
			return nil, errors.NewStoreError("table", "decode row", errors.Wrapf(err, "row %d", i+1))
		}
		r.Header = s.header
		if _, ok := s.rows[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.rows[r.ID] = r
	}
	return s, nil
}

func decodeRow(row []string) (record, error) {
	var r record
	if len(row) != 6 {
		return r, errors.NewDimensionError("TableStore row", 6, len(row), 1)
	}
	r.ID = row[0]
	fields := []interface{}{&r.Mean, &r.Stdev, &r.Covariance, &r.DependentColumns, &r.IntegerColumns}
	for i, dst := range fields {
		if err := parseList(row[i+1], dst); err != nil {
			return r, errors.Wrapf(err, "field %d of group %s", i+1, r.ID)
		}
	}
	return r, nil
}

func encodeRow(r record) ([]string, error) {
	row := []string{r.ID}
	for _, v := range []interface{}{r.Mean, r.Stdev, r.Covariance, r.DependentColumns, r.IntegerColumns} {
		lit, err := listLiteral(v)
		if err != nil {
			return nil, err
		}
		row = append(row, lit)
	}
	return row, nil
}

// Put adds or replaces the row of d and rewrites the table. All groups must
// share one header.
func (s *TableStore) Put(ctx context.Context, d *distribution.Distribution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(d.ID); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.header == nil {
		s.header = slices.Clone(d.Header)
		if err := writeCSVFile(filepath.Join(s.dir, headerFileName), [][]string{s.header}); err != nil {
			return errors.NewStoreError("table", "write header", err)
		}
	} else if !slices.Equal(s.header, d.Header) {
		return errors.NewValidationError("header", "differs from the header stored for earlier groups", d.Header)
	}

	if _, ok := s.rows[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.rows[d.ID] = toRecord(d)

	out := make([][]string, 0, len(s.order))
	for _, id := range s.order {
		row, err := encodeRow(s.rows[id])
		if err != nil {
			return errors.NewStoreError("table", "encode "+id, err)
		}
		out = append(out, row)
	}
	if err := writeCSVFile(filepath.Join(s.dir, tableFileName), out); err != nil {
		return errors.NewStoreError("table", "write table", err)
	}
	return nil
}

// Get decodes the row of group id.
func (s *TableStore) Get(ctx context.Context, id string) (*distribution.Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	r, ok := s.rows[id]
	header := s.header
	s.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "group %s", id)
	}
	r.Header = slices.Clone(header)
	return r.distribution()
}

// IDs returns group ids in row order.
func (s *TableStore) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order), nil
}

// Close is a no-op; the table is rewritten on every Put.
func (s *TableStore) Close() error {
	return nil
}
